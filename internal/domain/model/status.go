/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// Status is the human-facing view derived from the persisted session and
// last known fix. Nil fields are absent.
type Status struct {
	Tracking             bool     `json:"tracking"`
	ElapsedSinceStart    *float64 `json:"elapsedSinceStart,omitempty"`    // seconds
	ElapsedSinceLastPing *float64 `json:"elapsedSinceLastPing,omitempty"` // seconds
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
}
