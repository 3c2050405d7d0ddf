/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

type PermissionStatus uint8

const (
	PermissionNotAsked PermissionStatus = iota
	PermissionGranted
	PermissionDenied
)

func (s PermissionStatus) String() string {
	switch s {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "not-asked"
	}
}

func (s PermissionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Permissions holds the foreground and background location capability states.
type Permissions struct {
	Foreground PermissionStatus `json:"foreground"`
	Background PermissionStatus `json:"background"`
}

// Granted reports whether both foreground and background access are granted.
func (p Permissions) Granted() bool {
	return p.Foreground == PermissionGranted && p.Background == PermissionGranted
}
