/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// LocationFix is a single position reading from the location source.
type LocationFix struct {
	Latitude          float64 `cbor:"1,keyasint" json:"latitude"`
	Longitude         float64 `cbor:"2,keyasint" json:"longitude"`
	CapturedAtEpochMs int64   `cbor:"3,keyasint" json:"capturedAtEpochMs"`
}

// DeliveryRecord is the body posted to the collector for one fix.
type DeliveryRecord struct {
	DeviceID  string  `json:"deviceID"`
	Secret    string  `json:"secret"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

func NewDeliveryRecord(id DeviceIdentity, fix LocationFix) DeliveryRecord {
	return DeliveryRecord{
		DeviceID:  id.ID,
		Secret:    id.Secret,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Timestamp: fix.CapturedAtEpochMs,
	}
}
