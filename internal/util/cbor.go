/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DecodeCBORForJSON decodes a CBOR item into a value encoding/json can
// marshal. Integer map keys become strings, byte strings become h'..' text.
func DecodeCBORForJSON(raw []byte) (any, error) {
	var decoded any
	if err := cbor.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return normaliseCBORForJSON(decoded)
}

func RenderCBORPretty(raw []byte) (string, error) {
	normalised, err := DecodeCBORForJSON(raw)
	if err != nil {
		return "", err
	}

	pretty, err := json.MarshalIndent(normalised, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}

// normaliseCBORForJSON rewrites the shapes stored records decode into:
// maps keyed by integers and byte strings. Scalars pass through.
func normaliseCBORForJSON(value any) (any, error) {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			name := recordKeyName(key)
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("map key %q appears twice after conversion", name)
			}
			norm, err := normaliseCBORForJSON(val)
			if err != nil {
				return nil, err
			}
			out[name] = norm
		}
		return out, nil
	case []byte:
		return fmt.Sprintf("h'%x'", v), nil
	default:
		return v, nil
	}
}

func recordKeyName(key any) string {
	if b, ok := key.([]byte); ok {
		return fmt.Sprintf("h'%x'", b)
	}
	return fmt.Sprint(key)
}
