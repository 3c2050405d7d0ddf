/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package location

import (
	"context"
	"errors"
	"sync"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
)

var ErrNoFix = errors.New("no position fix available")

// Provider answers point queries for the current position.
type Provider interface {
	Fix(ctx context.Context) (model.LocationFix, error)
}

// PushProvider keeps the newest fix pushed by the host platform (a GPS
// daemon, the companion app) and hands it out on request.
type PushProvider struct {
	mu     sync.RWMutex
	latest model.LocationFix
	has    bool
}

func NewPushProvider() *PushProvider {
	return &PushProvider{}
}

// Push records fix unless a newer one has already been pushed.
func (p *PushProvider) Push(fix model.LocationFix) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.has && fix.CapturedAtEpochMs < p.latest.CapturedAtEpochMs {
		return
	}
	p.latest = fix
	p.has = true
}

func (p *PushProvider) Fix(ctx context.Context) (model.LocationFix, error) {
	if err := ctx.Err(); err != nil {
		return model.LocationFix{}, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.has {
		return model.LocationFix{}, ErrNoFix
	}
	return p.latest, nil
}
