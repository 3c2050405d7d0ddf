/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDBPath           = "TRACKER_DB_PATH"
	EnvRegistryURL      = "TRACKER_REGISTRY_URL"
	EnvCollectorURL     = "TRACKER_COLLECTOR_URL"
	EnvHTTPTimeout      = "TRACKER_HTTP_TIMEOUT"
	EnvDeliveryInterval = "TRACKER_DELIVERY_INTERVAL"
	EnvRefreshInterval  = "TRACKER_REFRESH_INTERVAL"
	EnvListenAddr       = "TRACKER_LISTEN_ADDR"
	EnvAllowedOrigins   = "TRACKER_ALLOWED_ORIGINS"
	EnvInsecureTLS      = "TRACKER_INSECURE_TLS"

	DefaultDBPath           = "tracker.db"
	DefaultHTTPTimeout      = 10 * time.Second
	DefaultDeliveryInterval = 6 * time.Hour
	DefaultRefreshInterval  = time.Second
	DefaultListenAddr       = "127.0.0.1:8787"
)

// TrackerConfig captures the tunables required to start the tracker daemon.
type TrackerConfig struct {
	DBPath           string
	ListenAddr       string
	AllowedOrigins   []string
	DeliveryInterval time.Duration // hint for background fix delivery
	RefreshInterval  time.Duration // local status refresh while tracking
	Backend          BackendConfig
	Logger           *log.Logger
}

// BackendConfig describes the remote registry and collector endpoints.
type BackendConfig struct {
	RegistryURL  string
	CollectorURL string
	InsecureTLS  bool
	Timeout      time.Duration
	Logger       *log.Logger
}

// LoadFromEnv loads an optional dotenv file and then reads TRACKER_*
// variables. Variables already present in the environment win over the file.
func LoadFromEnv(envFile string) (TrackerConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return TrackerConfig{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	timeout, err := durationEnvOrDefault(EnvHTTPTimeout, DefaultHTTPTimeout)
	if err != nil {
		return TrackerConfig{}, err
	}
	delivery, err := durationEnvOrDefault(EnvDeliveryInterval, DefaultDeliveryInterval)
	if err != nil {
		return TrackerConfig{}, err
	}
	refresh, err := durationEnvOrDefault(EnvRefreshInterval, DefaultRefreshInterval)
	if err != nil {
		return TrackerConfig{}, err
	}

	cfg := TrackerConfig{
		DBPath:           envOrDefault(EnvDBPath, DefaultDBPath),
		ListenAddr:       envOrDefault(EnvListenAddr, DefaultListenAddr),
		AllowedOrigins:   listEnv(EnvAllowedOrigins),
		DeliveryInterval: delivery,
		RefreshInterval:  refresh,
		Backend: BackendConfig{
			RegistryURL:  strings.TrimSpace(os.Getenv(EnvRegistryURL)),
			CollectorURL: strings.TrimSpace(os.Getenv(EnvCollectorURL)),
			InsecureTLS:  boolEnvOrDefault(EnvInsecureTLS, false),
			Timeout:      timeout,
		},
	}

	if err := cfg.Validate(); err != nil {
		return TrackerConfig{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c TrackerConfig) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("invalid %s: must not be empty", EnvDBPath)
	}
	if c.Backend.RegistryURL == "" {
		return fmt.Errorf("invalid %s: must not be empty", EnvRegistryURL)
	}
	if c.Backend.CollectorURL == "" {
		return fmt.Errorf("invalid %s: must not be empty", EnvCollectorURL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvHTTPTimeout)
	}
	if c.DeliveryInterval <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvDeliveryInterval)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("invalid %s: must be > 0", EnvRefreshInterval)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolEnvOrDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationEnvOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func listEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
