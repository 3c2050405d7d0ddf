/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv(EnvRegistryURL, "http://registry.local")
	t.Setenv(EnvCollectorURL, "http://collector.local")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultDeliveryInterval, cfg.DeliveryInterval)
	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Backend.Timeout)
	assert.False(t, cfg.Backend.InsecureTLS)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadFromEnv_DotenvFile(t *testing.T) {
	// godotenv does not override variables that are already set; register
	// cleanups so the values loaded from the file do not leak.
	for _, k := range []string{EnvRegistryURL, EnvCollectorURL, EnvHTTPTimeout, EnvAllowedOrigins} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), "tracker.env")
	content := "TRACKER_REGISTRY_URL=http://r\n" +
		"TRACKER_COLLECTOR_URL=http://c\n" +
		"TRACKER_HTTP_TIMEOUT=3s\n" +
		"TRACKER_ALLOWED_ORIGINS=http://localhost:5173, http://127.0.0.1:5173\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "http://r", cfg.Backend.RegistryURL)
	assert.Equal(t, "http://c", cfg.Backend.CollectorURL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.AllowedOrigins)
}

func TestLoadFromEnv_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv(EnvRegistryURL, "http://registry.local")
	t.Setenv(EnvCollectorURL, "http://collector.local")

	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv(EnvRegistryURL, "http://registry.local")
	t.Setenv(EnvCollectorURL, "")
	_, err := LoadFromEnv("")
	require.Error(t, err)

	t.Setenv(EnvCollectorURL, "http://collector.local")
	t.Setenv(EnvRefreshInterval, "soon")
	_, err = LoadFromEnv("")
	require.Error(t, err)

	t.Setenv(EnvRefreshInterval, "0s")
	_, err = LoadFromEnv("")
	require.Error(t, err)
}
