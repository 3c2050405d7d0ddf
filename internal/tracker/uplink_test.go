/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"context"
	"testing"

	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnFix_DeliversRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.enroll(t)
	uplink := env.tracker.Uplink()

	require.NoError(t, uplink.OnFix(ctx, model.LocationFix{Latitude: 35.6, Longitude: 139.7, CapturedAtEpochMs: 1234}))
	uplink.Wait()

	records := env.collector.Records()
	require.Len(t, records, 1)
	assert.Equal(t, model.DeliveryRecord{
		DeviceID:  id.ID,
		Secret:    id.Secret,
		Latitude:  35.6,
		Longitude: 139.7,
		Timestamp: 1234,
	}, records[0])
}

func TestOnFix_NotEnrolled_Dropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	uplink := env.tracker.Uplink()

	err := uplink.OnFix(ctx, model.LocationFix{CapturedAtEpochMs: 1})
	require.ErrorIs(t, err, domain.ErrNotEnrolled)

	last, err := uplink.LastKnownFix(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
	uplink.Wait()
	assert.Empty(t, env.collector.Records())
}

func TestOnFix_OutOfOrder_KeepsNewest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)
	uplink := env.tracker.Uplink()

	require.NoError(t, uplink.OnFix(ctx, model.LocationFix{Latitude: 1, CapturedAtEpochMs: 100}))
	err := uplink.OnFix(ctx, model.LocationFix{Latitude: 2, CapturedAtEpochMs: 50})
	require.ErrorIs(t, err, domain.ErrStaleFix)
	uplink.Wait()

	last, err := uplink.LastKnownFix(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(100), last.CapturedAtEpochMs)
	assert.Equal(t, 1.0, last.Latitude)
	assert.Len(t, env.collector.Records(), 1)
}

func TestOnFix_EqualTimestamp_Overwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)
	uplink := env.tracker.Uplink()

	require.NoError(t, uplink.OnFix(ctx, model.LocationFix{Latitude: 1, CapturedAtEpochMs: 100}))
	require.NoError(t, uplink.OnFix(ctx, model.LocationFix{Latitude: 2, CapturedAtEpochMs: 100}))
	uplink.Wait()

	last, err := uplink.LastKnownFix(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, last.Latitude)
}

func TestOnFix_WatermarkSurvivesRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)

	require.NoError(t, env.tracker.Uplink().OnFix(ctx, model.LocationFix{CapturedAtEpochMs: 100}))
	env.tracker.Uplink().Wait()

	restarted := env.newTracker(t)
	err := restarted.Uplink().OnFix(ctx, model.LocationFix{CapturedAtEpochMs: 50})
	require.ErrorIs(t, err, domain.ErrStaleFix)
}

func TestOnFix_DeliveryFailure_StillRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)
	env.collector.err = errInjected
	uplink := env.tracker.Uplink()

	require.NoError(t, uplink.OnFix(ctx, model.LocationFix{Latitude: 9, CapturedAtEpochMs: 10}))
	uplink.Wait()

	last, err := uplink.LastKnownFix(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 9.0, last.Latitude)
	assert.Len(t, env.collector.Records(), 1)
}

func TestOnFix_PersistFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)
	env.store.failSet.Store(true)

	err := env.tracker.Uplink().OnFix(ctx, model.LocationFix{CapturedAtEpochMs: 10})
	require.ErrorIs(t, err, domain.ErrPersistence)
	env.tracker.Uplink().Wait()
	assert.Empty(t, env.collector.Records())
}

func TestBackgroundDelivery_HandlerIsUplink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)

	_, err := env.tracker.TurnOn(ctx)
	require.NoError(t, err)
	require.NotNil(t, env.source.handler)

	require.NoError(t, env.source.handler(ctx, model.LocationFix{Latitude: 5, CapturedAtEpochMs: 42}))
	env.tracker.Uplink().Wait()

	records := env.collector.Records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(42), records[0].Timestamp)
}

func TestOnFix_SameFixTwice_DeliveredOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.enroll(t)
	uplink := env.tracker.Uplink()

	fix := model.LocationFix{Latitude: 10, Longitude: 20, CapturedAtEpochMs: 4500}
	require.NoError(t, uplink.OnFix(ctx, fix))
	require.NoError(t, uplink.OnFix(ctx, fix))
	require.NoError(t, uplink.OnFix(ctx, fix))
	uplink.Wait()

	assert.Len(t, env.collector.Records(), 1)
}
