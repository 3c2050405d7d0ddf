/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package domain

import "errors"

var (
	ErrNotFound = errors.New("item not found")

	ErrPersistence      = errors.New("persistence failure")
	ErrRegistration     = errors.New("device registration failed")
	ErrDelivery         = errors.New("location delivery failed")
	ErrPermissionDenied = errors.New("location permission not granted")
	ErrNotEnrolled      = errors.New("device is not enrolled")
	ErrStaleFix         = errors.New("fix is older than the last known fix")
)
