/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package location

import (
	"context"

	"github.com/kentakayama/tracker-over-http/internal/domain/model"
)

type Scope uint8

const (
	ScopeForeground Scope = iota
	ScopeBackground
)

func (s Scope) String() string {
	if s == ScopeBackground {
		return "background"
	}
	return "foreground"
}

// Prompter asks the platform (or the user) for a location capability.
type Prompter interface {
	Prompt(ctx context.Context, scope Scope) (model.PermissionStatus, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, scope Scope) (model.PermissionStatus, error)

func (f PrompterFunc) Prompt(ctx context.Context, scope Scope) (model.PermissionStatus, error) {
	return f(ctx, scope)
}

// StaticPrompter answers every prompt with the same status. Headless
// deployments use it with PermissionGranted.
type StaticPrompter model.PermissionStatus

func (p StaticPrompter) Prompt(context.Context, Scope) (model.PermissionStatus, error) {
	return model.PermissionStatus(p), nil
}
