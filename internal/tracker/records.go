/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"context"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
)

// loadRecord decodes the value at key into out. It reports false when the
// key is absent.
func loadRecord(ctx context.Context, store service.KeyValueStore, key string, out any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, persistenceError("read "+key, err)
	}
	if err := cbor.Unmarshal(raw, out); err != nil {
		return false, persistenceError("decode "+key, err)
	}
	return true, nil
}

func saveRecord(ctx context.Context, store service.KeyValueStore, key string, v any) error {
	raw, err := cbor.Marshal(v)
	if err != nil {
		return persistenceError("encode "+key, err)
	}
	if err := store.Set(ctx, key, raw); err != nil {
		return persistenceError("write "+key, err)
	}
	return nil
}

func loadIdentity(ctx context.Context, store service.KeyValueStore) (*model.DeviceIdentity, error) {
	var id model.DeviceIdentity
	ok, err := loadRecord(ctx, store, service.KeyDevice, &id)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

// loadSession returns the inactive session when nothing is persisted.
func loadSession(ctx context.Context, store service.KeyValueStore) (model.TrackingSession, error) {
	var s model.TrackingSession
	ok, err := loadRecord(ctx, store, service.KeySession, &s)
	if err != nil {
		return model.TrackingSession{}, err
	}
	if !ok || !s.Active {
		return model.TrackingSession{}, nil
	}
	return s, nil
}

func loadFix(ctx context.Context, store service.KeyValueStore) (*model.LocationFix, error) {
	var fix model.LocationFix
	ok, err := loadRecord(ctx, store, service.KeyLocation, &fix)
	if err != nil || !ok {
		return nil, err
	}
	return &fix, nil
}
