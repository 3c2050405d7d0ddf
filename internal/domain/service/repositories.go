/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
)

// Keys of the records kept in the KeyValueStore.
const (
	KeyDevice   = "device"
	KeySession  = "trackingStart"
	KeyLocation = "location"
)

// KeyValueStore persists small named records across process restarts.
type KeyValueStore interface {
	// Get returns domain.ErrNotFound when the key has no value.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes all given keys atomically. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// FixHandler receives fixes from background delivery.
type FixHandler func(ctx context.Context, fix model.LocationFix) error

// LocationSource produces position fixes and gates them behind permissions.
type LocationSource interface {
	CurrentFix(ctx context.Context) (model.LocationFix, error)
	StartBackgroundDelivery(interval time.Duration, handler FixHandler) error
	StopBackgroundDelivery() error
	Permissions() model.Permissions
	RequestForeground(ctx context.Context) (model.PermissionStatus, error)
	RequestBackground(ctx context.Context) (model.PermissionStatus, error)
}

// Registry issues device IDs for locally generated secrets.
type Registry interface {
	Register(ctx context.Context, secret string) (string, error)
}

// Collector accepts location samples.
type Collector interface {
	Deliver(ctx context.Context, record model.DeliveryRecord) error
}
