/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// TrackingSession is persisted as one record so that Active and
// StartedAtEpochMs are always written together.
type TrackingSession struct {
	Active           bool   `cbor:"1,keyasint"`
	StartedAtEpochMs *int64 `cbor:"2,keyasint,omitempty"` // nil while inactive
}

// NewActiveSession returns an active session started at startedAt (ms since epoch).
func NewActiveSession(startedAt int64) TrackingSession {
	return TrackingSession{Active: true, StartedAtEpochMs: &startedAt}
}
