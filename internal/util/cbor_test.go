/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCBORForJSON_IntKeys(t *testing.T) {
	// {1: true, 2: 1000}
	got, err := DecodeCBORForJSON([]byte{0xA2, 0x01, 0xF5, 0x02, 0x19, 0x03, 0xE8})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": true, "2": uint64(1000)}, got)
}

func TestDecodeCBORForJSON_Bytes(t *testing.T) {
	// {1: h'0102'}
	got, err := DecodeCBORForJSON([]byte{0xA1, 0x01, 0x42, 0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": "h'0102'"}, got)
}

func TestRenderCBORPretty(t *testing.T) {
	out, err := RenderCBORPretty([]byte{0xA1, 0x01, 0xF4})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"1\": false\n}", out)

	_, err = RenderCBORPretty([]byte{0xFF})
	require.Error(t, err)
}

func TestDecodeCBORForJSON_NestedMap(t *testing.T) {
	// {1: {2: -1}}
	got, err := DecodeCBORForJSON([]byte{0xA1, 0x01, 0xA1, 0x02, 0x20})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": map[string]any{"2": int64(-1)}}, got)
}

func TestDecodeCBORForJSON_CollidingKeys(t *testing.T) {
	// {1: true, "1": false}
	_, err := DecodeCBORForJSON([]byte{0xA2, 0x01, 0xF5, 0x61, 0x31, 0xF4})
	require.Error(t, err)
}
