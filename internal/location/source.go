/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
)

const defaultFixTimeout = 30 * time.Second

// PollingSource implements service.LocationSource by polling a Provider on
// a ticker while background delivery is active.
type PollingSource struct {
	provider   Provider
	prompter   Prompter
	fixTimeout time.Duration
	now        func() time.Time
	logger     *log.Logger

	mu     sync.Mutex
	perms  model.Permissions
	cancel context.CancelFunc
	done   chan struct{}
}

var _ service.LocationSource = (*PollingSource)(nil)

func NewPollingSource(provider Provider, prompter Prompter, logger *log.Logger) *PollingSource {
	if logger == nil {
		logger = log.Default()
	}
	return &PollingSource{
		provider:   provider,
		prompter:   prompter,
		fixTimeout: defaultFixTimeout,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *PollingSource) CurrentFix(ctx context.Context) (model.LocationFix, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fixTimeout)
	defer cancel()
	return s.provider.Fix(ctx)
}

func (s *PollingSource) Permissions() model.Permissions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perms
}

// RequestForeground prompts once; a settled answer is returned as is.
func (s *PollingSource) RequestForeground(ctx context.Context) (model.PermissionStatus, error) {
	s.mu.Lock()
	current := s.perms.Foreground
	s.mu.Unlock()
	if current != model.PermissionNotAsked {
		return current, nil
	}

	status, err := s.prompter.Prompt(ctx, ScopeForeground)
	if err != nil {
		return model.PermissionNotAsked, fmt.Errorf("prompt foreground: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms.Foreground = status
	return status, nil
}

// RequestBackground never prompts before foreground access is granted.
func (s *PollingSource) RequestBackground(ctx context.Context) (model.PermissionStatus, error) {
	s.mu.Lock()
	perms := s.perms
	s.mu.Unlock()
	if perms.Foreground != model.PermissionGranted {
		return model.PermissionDenied, nil
	}
	if perms.Background != model.PermissionNotAsked {
		return perms.Background, nil
	}

	status, err := s.prompter.Prompt(ctx, ScopeBackground)
	if err != nil {
		return model.PermissionNotAsked, fmt.Errorf("prompt background: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms.Background = status
	return status, nil
}

// StartBackgroundDelivery polls the provider immediately and then every
// interval, passing each new fix to handler once. Fixes captured before the
// start are never handed out. It is a no-op while already running.
func (s *PollingSource) StartBackgroundDelivery(interval time.Duration, handler service.FixHandler) error {
	if interval <= 0 {
		return fmt.Errorf("invalid delivery interval %v", interval)
	}
	if handler == nil {
		return errors.New("fix handler is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.perms.Granted() {
		return fmt.Errorf("background delivery requires granted permissions (foreground=%s, background=%s)", s.perms.Foreground, s.perms.Background)
	}
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, done, interval, s.now().UnixMilli(), handler)
	s.logger.Printf("location: background delivery started interval=%s", interval)
	return nil
}

func (s *PollingSource) StopBackgroundDelivery() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	s.logger.Printf("location: background delivery stopped")
	return nil
}

func (s *PollingSource) run(ctx context.Context, done chan struct{}, interval time.Duration, sinceMs int64, handler service.FixHandler) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// capture time of the last fix handed to handler
	last := sinceMs - 1
	for {
		last = s.poll(ctx, last, handler)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll hands the current fix to handler when it is newer than last and
// returns the updated mark.
func (s *PollingSource) poll(ctx context.Context, last int64, handler service.FixHandler) int64 {
	fix, err := s.CurrentFix(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrNoFix) {
			s.logger.Printf("location: poll failed: %v", err)
		}
		return last
	}
	if fix.CapturedAtEpochMs <= last {
		return last
	}
	if err := handler(ctx, fix); err != nil {
		s.logger.Printf("location: fix handler failed captured_at=%d: %v", fix.CapturedAtEpochMs, err)
	}
	return fix.CapturedAtEpochMs
}
