/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
	"github.com/kentakayama/tracker-over-http/internal/infra/sqlite"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

type fakeClock struct {
	ms atomic.Int64
}

func (c *fakeClock) Set(ms int64)   { c.ms.Store(ms) }
func (c *fakeClock) Now() time.Time { return time.UnixMilli(c.ms.Load()) }

type fakeRegistry struct {
	mu    sync.Mutex
	calls int
	id    string
	err   error
	delay time.Duration
}

func (r *fakeRegistry) Register(ctx context.Context, secret string) (string, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.id, nil
}

func (r *fakeRegistry) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeCollector struct {
	mu      sync.Mutex
	records []model.DeliveryRecord
	err     error
}

func (c *fakeCollector) Deliver(ctx context.Context, record model.DeliveryRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return c.err
}

func (c *fakeCollector) Records() []model.DeliveryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.DeliveryRecord(nil), c.records...)
}

type fakeSource struct {
	mu       sync.Mutex
	perms    model.Permissions
	fix      model.LocationFix
	fixErr   error
	startErr error
	running  bool
	starts   int
	stops    int
	interval time.Duration
	handler  service.FixHandler
}

func grantedPermissions() model.Permissions {
	return model.Permissions{Foreground: model.PermissionGranted, Background: model.PermissionGranted}
}

func (s *fakeSource) CurrentFix(ctx context.Context) (model.LocationFix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fix, s.fixErr
}

func (s *fakeSource) StartBackgroundDelivery(interval time.Duration, handler service.FixHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	if s.running {
		return nil
	}
	s.running = true
	s.starts++
	s.interval = interval
	s.handler = handler
	return nil
}

func (s *fakeSource) StopBackgroundDelivery() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.stops++
	}
	s.running = false
	return nil
}

func (s *fakeSource) Permissions() model.Permissions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perms
}

func (s *fakeSource) RequestForeground(ctx context.Context) (model.PermissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perms.Foreground == model.PermissionNotAsked {
		s.perms.Foreground = model.PermissionGranted
	}
	return s.perms.Foreground, nil
}

func (s *fakeSource) RequestBackground(ctx context.Context) (model.PermissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perms.Foreground != model.PermissionGranted {
		return model.PermissionDenied, nil
	}
	if s.perms.Background == model.PermissionNotAsked {
		s.perms.Background = model.PermissionGranted
	}
	return s.perms.Background, nil
}

func (s *fakeSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// flakyStore wraps a real store and fails writes on demand.
type flakyStore struct {
	service.KeyValueStore
	failSet    atomic.Bool
	failDelete atomic.Bool
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet.Load() {
		return errInjected
	}
	return s.KeyValueStore.Set(ctx, key, value)
}

func (s *flakyStore) Delete(ctx context.Context, keys ...string) error {
	if s.failDelete.Load() {
		return errInjected
	}
	return s.KeyValueStore.Delete(ctx, keys...)
}

type testEnv struct {
	db        *sql.DB
	store     *flakyStore
	clock     *fakeClock
	registry  *fakeRegistry
	collector *fakeCollector
	source    *fakeSource
	tracker   *Tracker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.InitDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.CloseDB(db) })

	env := &testEnv{
		db:        db,
		store:     &flakyStore{KeyValueStore: sqlite.NewKVStore(db)},
		clock:     &fakeClock{},
		registry:  &fakeRegistry{id: "dev-1"},
		collector: &fakeCollector{},
		source:    &fakeSource{perms: grantedPermissions()},
	}
	env.tracker = env.newTracker(t)
	return env
}

// newTracker builds another Tracker over the same store, as a restarted
// process would.
func (e *testEnv) newTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := NewTracker(Options{
		Store:            e.store,
		Source:           e.source,
		Registry:         e.registry,
		Collector:        e.collector,
		DeliveryInterval: time.Hour,
		RefreshInterval:  5 * time.Millisecond,
		DeliveryTimeout:  time.Second,
		Now:              e.clock.Now,
		Logger:           log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func (e *testEnv) enroll(t *testing.T) model.DeviceIdentity {
	t.Helper()
	id, err := e.tracker.EnsureEnrolled(context.Background())
	require.NoError(t, err)
	return id
}
