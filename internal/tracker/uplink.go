/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
)

// Uplink records incoming fixes as the last known fix and forwards them to
// the collector. It is the only writer of the location record.
type Uplink struct {
	store     service.KeyValueStore
	collector service.Collector
	timeout   time.Duration
	logger    *log.Logger

	mu        sync.Mutex // guards the read-compare-write of the location record
	loaded    bool
	hasLatest bool
	latest    int64 // CapturedAtEpochMs of the last written fix

	delivered    model.LocationFix // last fix handed to the collector
	hasDelivered bool

	inflight sync.WaitGroup
}

func NewUplink(store service.KeyValueStore, collector service.Collector, timeout time.Duration, logger *log.Logger) *Uplink {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Uplink{
		store:     store,
		collector: collector,
		timeout:   timeout,
		logger:    logger,
	}
}

// OnFix handles one fix from background delivery: the fix becomes the last
// known fix and a single delivery attempt is started without waiting for it.
// Fixes older than the last written one are dropped, and a fix identical to
// the last delivered one is ignored.
func (u *Uplink) OnFix(ctx context.Context, fix model.LocationFix) error {
	identity, err := loadIdentity(ctx, u.store)
	if err != nil {
		u.logger.Printf("uplink: dropping fix captured_at=%d: %v", fix.CapturedAtEpochMs, err)
		return err
	}
	if identity == nil {
		u.logger.Printf("uplink: dropping fix captured_at=%d: %v", fix.CapturedAtEpochMs, domain.ErrNotEnrolled)
		return domain.ErrNotEnrolled
	}

	u.mu.Lock()
	if u.hasDelivered && u.delivered == fix {
		u.mu.Unlock()
		return nil
	}
	if err := u.recordLocked(ctx, fix); err != nil {
		u.mu.Unlock()
		return err
	}
	u.delivered = fix
	u.hasDelivered = true
	u.mu.Unlock()

	u.deliver(model.NewDeliveryRecord(*identity, fix))
	return nil
}

// Record stores fix as the last known fix without delivering it.
func (u *Uplink) Record(ctx context.Context, fix model.LocationFix) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.recordLocked(ctx, fix)
}

func (u *Uplink) recordLocked(ctx context.Context, fix model.LocationFix) error {
	if !u.loaded {
		existing, err := loadFix(ctx, u.store)
		if err != nil {
			// unreadable optional record: treat as absent
			u.logger.Printf("uplink: reading last known fix: %v", err)
		}
		if existing != nil {
			u.latest = existing.CapturedAtEpochMs
			u.hasLatest = true
		}
		u.loaded = true
	}

	if u.hasLatest && fix.CapturedAtEpochMs < u.latest {
		return fmt.Errorf("%w: captured_at=%d last=%d", domain.ErrStaleFix, fix.CapturedAtEpochMs, u.latest)
	}

	if err := saveRecord(ctx, u.store, service.KeyLocation, fix); err != nil {
		return err
	}
	u.latest = fix.CapturedAtEpochMs
	u.hasLatest = true
	return nil
}

// LastKnownFix returns the persisted last known fix, or nil if none.
func (u *Uplink) LastKnownFix(ctx context.Context) (*model.LocationFix, error) {
	return loadFix(ctx, u.store)
}

// Wait blocks until every started delivery has finished.
func (u *Uplink) Wait() {
	u.inflight.Wait()
}

// reset runs clearFn while holding the uplink lock and forgets the ordering
// watermark when it succeeds.
func (u *Uplink) reset(ctx context.Context, clearFn func(context.Context) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := clearFn(ctx); err != nil {
		return err
	}
	u.latest = 0
	u.hasLatest = false
	u.loaded = true
	u.hasDelivered = false
	return nil
}

func (u *Uplink) deliver(record model.DeliveryRecord) {
	u.inflight.Add(1)
	go func() {
		defer u.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
		defer cancel()

		if err := u.collector.Deliver(ctx, record); err != nil {
			u.logger.Printf("uplink: delivery of fix captured_at=%d failed: %v", record.Timestamp, err)
		}
	}()
}
