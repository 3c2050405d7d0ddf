/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import (
	"context"
	"fmt"

	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
)

// Session returns the persisted tracking session.
func (t *Tracker) Session(ctx context.Context) (model.TrackingSession, error) {
	return loadSession(ctx, t.store)
}

// Restore recovers the session after a process start. An active session
// gets its refresh loop and background delivery back; both start at most once.
func (t *Tracker) Restore(ctx context.Context) (model.TrackingSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := loadSession(ctx, t.store)
	if err != nil {
		return model.TrackingSession{}, err
	}
	if !session.Active {
		return session, nil
	}

	if err := t.startDelivery(); err != nil {
		// the session stays on; delivery resumes on the next TurnOn
		t.logger.Printf("tracker: resuming background delivery: %v", err)
	}
	if t.refresher.Start() && session.StartedAtEpochMs != nil {
		t.logger.Printf("tracker: resumed session started_at=%d", *session.StartedAtEpochMs)
	}
	return session, nil
}

// TurnOn starts a tracking session. Calling it while a session is active
// keeps the original start time.
func (t *Tracker) TurnOn(ctx context.Context) (model.TrackingSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	identity, err := loadIdentity(ctx, t.store)
	if err != nil {
		return model.TrackingSession{}, err
	}
	if identity == nil {
		return model.TrackingSession{}, domain.ErrNotEnrolled
	}

	perms := t.source.Permissions()
	if !perms.Granted() {
		return model.TrackingSession{}, fmt.Errorf("%w (foreground=%s, background=%s)", domain.ErrPermissionDenied, perms.Foreground, perms.Background)
	}

	current, err := loadSession(ctx, t.store)
	if err != nil {
		return model.TrackingSession{}, err
	}
	if current.Active {
		if err := t.startDelivery(); err != nil {
			return current, err
		}
		t.refresher.Start()
		return current, nil
	}

	session := model.NewActiveSession(t.now().UnixMilli())
	if err := saveRecord(ctx, t.store, service.KeySession, session); err != nil {
		return model.TrackingSession{}, err
	}

	if err := t.startDelivery(); err != nil {
		if rbErr := t.store.Delete(ctx, service.KeySession); rbErr != nil {
			t.logger.Printf("tracker: rolling back session: %v", rbErr)
			return model.TrackingSession{}, persistenceError("roll back session", rbErr)
		}
		return model.TrackingSession{}, err
	}
	t.refresher.Start()

	t.logger.Printf("tracker: tracking on started_at=%d", *session.StartedAtEpochMs)
	return session, nil
}

// TurnOff ends the session and clears the last known fix. It is a no-op
// when tracking is already off.
func (t *Tracker) TurnOff(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.turnOffLocked(ctx, service.KeySession, service.KeyLocation)
}

func (t *Tracker) turnOffLocked(ctx context.Context, keys ...string) error {
	wasActive := false
	if s, err := loadSession(ctx, t.store); err == nil {
		wasActive = s.Active
	}

	// Stop delivery first so no in-flight fix lands after the clear.
	if err := t.source.StopBackgroundDelivery(); err != nil {
		t.logger.Printf("tracker: stopping background delivery: %v", err)
	}

	clearKeys := func(ctx context.Context) error {
		return t.store.Delete(ctx, keys...)
	}
	if err := t.uplink.reset(ctx, clearKeys); err != nil {
		if wasActive {
			if startErr := t.startDelivery(); startErr != nil {
				t.logger.Printf("tracker: restarting background delivery: %v", startErr)
			}
		}
		return persistenceError("clear session", err)
	}
	t.refresher.Stop()

	if wasActive {
		t.logger.Printf("tracker: tracking off")
	}
	return nil
}

func (t *Tracker) startDelivery() error {
	if err := t.source.StartBackgroundDelivery(t.deliveryInterval, t.uplink.OnFix); err != nil {
		return fmt.Errorf("start background delivery: %w", err)
	}
	return nil
}
