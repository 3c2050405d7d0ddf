/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"testing"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	t.Run("inactive without fix", func(t *testing.T) {
		status := Project(5000, model.TrackingSession{}, nil)
		assert.Equal(t, model.Status{}, status)
	})

	t.Run("active", func(t *testing.T) {
		status := Project(4000, model.NewActiveSession(1000), nil)
		assert.True(t, status.Tracking)
		require.NotNil(t, status.ElapsedSinceStart)
		assert.Equal(t, 3.0, *status.ElapsedSinceStart)
		assert.Nil(t, status.Latitude)
	})

	t.Run("with fix", func(t *testing.T) {
		fix := &model.LocationFix{Latitude: 10, Longitude: 20, CapturedAtEpochMs: 4500}
		status := Project(6500, model.NewActiveSession(1000), fix)
		require.NotNil(t, status.ElapsedSinceLastPing)
		assert.Equal(t, 2.0, *status.ElapsedSinceLastPing)
		assert.Equal(t, 10.0, *status.Latitude)
		assert.Equal(t, 20.0, *status.Longitude)
	})

	t.Run("clock behind start clamps to zero", func(t *testing.T) {
		fix := &model.LocationFix{CapturedAtEpochMs: 9000}
		status := Project(500, model.NewActiveSession(1000), fix)
		assert.Equal(t, 0.0, *status.ElapsedSinceStart)
		assert.Equal(t, 0.0, *status.ElapsedSinceLastPing)
	})

	t.Run("fractional seconds", func(t *testing.T) {
		status := Project(2250, model.NewActiveSession(1000), nil)
		assert.Equal(t, 1.25, *status.ElapsedSinceStart)
	})
}
