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

	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/domain/service"
)

// EnsureEnrolled returns the persisted identity, registering the device
// first if there is none. The registry is contacted at most once per
// installation; identity and secret are written as a single record.
func (t *Tracker) EnsureEnrolled(ctx context.Context) (model.DeviceIdentity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := loadIdentity(ctx, t.store)
	if err != nil {
		return model.DeviceIdentity{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	secret, err := generateSecret(SecretLength)
	if err != nil {
		return model.DeviceIdentity{}, fmt.Errorf("generate secret: %w", err)
	}

	deviceID, err := t.registry.Register(ctx, secret)
	if err != nil {
		if !errors.Is(err, domain.ErrRegistration) {
			err = fmt.Errorf("%w: %v", domain.ErrRegistration, err)
		}
		return model.DeviceIdentity{}, err
	}
	if deviceID == "" {
		return model.DeviceIdentity{}, fmt.Errorf("%w: empty device ID", domain.ErrRegistration)
	}

	identity := model.DeviceIdentity{ID: deviceID, Secret: secret}
	if err := saveRecord(ctx, t.store, service.KeyDevice, identity); err != nil {
		return model.DeviceIdentity{}, err
	}

	t.logger.Printf("tracker: enrolled device id=%s", identity.ID)
	return identity, nil
}

// Identity returns the persisted identity or nil before enrollment.
func (t *Tracker) Identity(ctx context.Context) (*model.DeviceIdentity, error) {
	return loadIdentity(ctx, t.store)
}

// FactoryReset turns tracking off and removes identity, session and last
// known fix in one store transaction.
func (t *Tracker) FactoryReset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.turnOffLocked(ctx, service.KeyDevice, service.KeySession, service.KeyLocation)
}
