/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// DeviceIdentity is issued by the remote registry on first enrollment and
// never changes afterwards.
type DeviceIdentity struct {
	ID     string `cbor:"1,keyasint"`
	Secret string `cbor:"2,keyasint"`
}
