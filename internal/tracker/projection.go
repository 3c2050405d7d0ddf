/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package tracker

import "github.com/kentakayama/tracker-over-http/internal/domain/model"

// Project derives the status at nowMs. Elapsed times are seconds and never
// negative.
func Project(nowMs int64, session model.TrackingSession, lastFix *model.LocationFix) model.Status {
	status := model.Status{Tracking: session.Active}

	if session.Active && session.StartedAtEpochMs != nil {
		elapsed := elapsedSeconds(nowMs, *session.StartedAtEpochMs)
		status.ElapsedSinceStart = &elapsed
	}

	if lastFix != nil {
		elapsed := elapsedSeconds(nowMs, lastFix.CapturedAtEpochMs)
		lat, long := lastFix.Latitude, lastFix.Longitude
		status.ElapsedSinceLastPing = &elapsed
		status.Latitude = &lat
		status.Longitude = &long
	}

	return status
}

func elapsedSeconds(nowMs, sinceMs int64) float64 {
	if nowMs <= sinceMs {
		return 0
	}
	return float64(nowMs-sinceMs) / 1000
}
