/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
)

const (
	defaultDeliveryInterval = 6 * time.Hour
	defaultRefreshInterval  = time.Second
	defaultDeliveryTimeout  = 10 * time.Second
)

// Options carries the collaborators and tunables of a Tracker.
type Options struct {
	Store     service.KeyValueStore
	Source    service.LocationSource
	Registry  service.Registry
	Collector service.Collector

	DeliveryInterval time.Duration // hint passed to the location source
	RefreshInterval  time.Duration // period of the local status refresh
	DeliveryTimeout  time.Duration // per collector POST

	Now    func() time.Time
	Logger *log.Logger
}

// Tracker owns the device identity and the tracking session, and wires the
// location source to the uplink.
type Tracker struct {
	store            service.KeyValueStore
	source           service.LocationSource
	registry         service.Registry
	uplink           *Uplink
	refresher        *refresher
	deliveryInterval time.Duration
	now              func() time.Time
	logger           *log.Logger

	mu sync.Mutex // serializes enrollment and session transitions
}

func NewTracker(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, errors.New("tracker: store is nil")
	}
	if opts.Source == nil {
		return nil, errors.New("tracker: location source is nil")
	}
	if opts.Registry == nil {
		return nil, errors.New("tracker: registry is nil")
	}
	if opts.Collector == nil {
		return nil, errors.New("tracker: collector is nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	deliveryInterval := opts.DeliveryInterval
	if deliveryInterval <= 0 {
		deliveryInterval = defaultDeliveryInterval
	}
	refreshInterval := opts.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	deliveryTimeout := opts.DeliveryTimeout
	if deliveryTimeout <= 0 {
		deliveryTimeout = defaultDeliveryTimeout
	}

	t := &Tracker{
		store:            opts.Store,
		source:           opts.Source,
		registry:         opts.Registry,
		uplink:           NewUplink(opts.Store, opts.Collector, deliveryTimeout, logger),
		deliveryInterval: deliveryInterval,
		now:              now,
		logger:           logger,
	}
	t.refresher = newRefresher(refreshInterval, t.refresh)
	return t, nil
}

// Uplink exposes the sample uplink, the only writer of the last known fix.
func (t *Tracker) Uplink() *Uplink {
	return t.uplink
}

// Status projects the persisted session and last known fix at the current time.
func (t *Tracker) Status(ctx context.Context) (model.Status, error) {
	session, err := loadSession(ctx, t.store)
	if err != nil {
		return model.Status{}, err
	}

	// the last fix is optional: a failed read is reported as absent
	fix, err := t.uplink.LastKnownFix(ctx)
	if err != nil {
		t.logger.Printf("tracker: reading last known fix: %v", err)
		fix = nil
	}

	return Project(t.now().UnixMilli(), session, fix), nil
}

// Subscribe returns a channel receiving the status on every refresh tick
// while tracking is on. The returned func unsubscribes.
func (t *Tracker) Subscribe() (<-chan model.Status, func()) {
	return t.refresher.subscribe()
}

// RequestPermissions asks for foreground access and, only once that is
// granted, for background access.
func (t *Tracker) RequestPermissions(ctx context.Context) (model.Permissions, error) {
	fg, err := t.source.RequestForeground(ctx)
	if err != nil {
		return t.source.Permissions(), err
	}
	if fg == model.PermissionGranted {
		if _, err := t.source.RequestBackground(ctx); err != nil {
			return t.source.Permissions(), err
		}
	}
	return t.source.Permissions(), nil
}

// QueryLocation takes a one-shot fix and records it as the last known fix
// without uploading it.
func (t *Tracker) QueryLocation(ctx context.Context) (model.LocationFix, error) {
	fix, err := t.source.CurrentFix(ctx)
	if err != nil {
		return model.LocationFix{}, fmt.Errorf("query current fix: %w", err)
	}
	if err := t.uplink.Record(ctx, fix); err != nil {
		return model.LocationFix{}, err
	}
	return fix, nil
}

// PushFix hands a fix reported by the host to the uplink while a session is
// active and reports whether it did. It is serialized with session
// transitions, so a fix never outlives a TurnOff.
func (t *Tracker) PushFix(ctx context.Context, fix model.LocationFix) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := loadSession(ctx, t.store)
	if err != nil {
		return false, err
	}
	if !session.Active {
		return false, nil
	}
	if err := t.uplink.OnFix(ctx, fix); err != nil {
		return false, err
	}
	return true, nil
}

// Close stops background work and waits for in-flight deliveries.
func (t *Tracker) Close() error {
	t.refresher.Stop()
	err := t.source.StopBackgroundDelivery()
	t.uplink.Wait()
	return err
}

func (t *Tracker) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	status, err := t.Status(ctx)
	if err != nil {
		t.logger.Printf("tracker: refresh: %v", err)
		return
	}
	t.refresher.publish(status)
}

func persistenceError(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrPersistence, op, err)
}
