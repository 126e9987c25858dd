// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package policy implements the access-control rules governing who may
// create, edit, delete, or view posts and comments. Decide is a pure
// function: it performs no I/O and no mutation; handlers consult it and
// translate a Deny into a user-facing rejection.
package policy

import (
	"errors"
	"fmt"

	"github.com/olegiv/oblog-go/internal/model"
)

// Action identifies an operation an actor wants to perform.
type Action string

// Actions covered by the policy.
const (
	ActionCreatePost    Action = "create_post"
	ActionEditPost      Action = "edit_post"
	ActionDeletePost    Action = "delete_post"
	ActionCreateComment Action = "create_comment"
	ActionEditComment   Action = "edit_comment"
	ActionDeleteComment Action = "delete_comment"
	ActionViewPost      Action = "view_post"
	ActionViewComment   Action = "view_comment"
)

// Deny reasons. Handlers surface these to the user.
const (
	ReasonAdminOnly     = "admin_only"
	ReasonLoginRequired = "login_required"
	ReasonNotOwner      = "not_owner"
)

// ErrInvalidRequest is returned for malformed input: an unknown action, or a
// missing resource where the action requires one. A Deny is never an error.
var ErrInvalidRequest = errors.New("policy: invalid request")

// Owned is a resource with a single owning user. Both model.Post and
// model.Comment satisfy it.
type Owned interface {
	OwnerID() int64
}

// Decision is the result of a policy check.
type Decision struct {
	Allowed bool
	Reason  string // Set only on deny
}

// Allow is the decision granting the action.
var Allow = Decision{Allowed: true}

// Deny returns a denying decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Decide evaluates whether actor may perform action on resource.
//
// actor is nil for anonymous visitors. resource is required only for
// edit_comment and delete_comment, where ownership matters; every other
// action ignores it. The rules, in order:
//
//  1. Post mutations are allowed for the admin only.
//  2. Commenting requires an authenticated actor.
//  3. Editing or deleting a comment is allowed for its owner or the admin.
//  4. Reads are public.
func Decide(actor *model.User, action Action, resource Owned) (Decision, error) {
	switch action {
	case ActionCreatePost, ActionEditPost, ActionDeletePost:
		if actor == nil || !actor.IsAdmin() {
			return Deny(ReasonAdminOnly), nil
		}
		return Allow, nil

	case ActionCreateComment:
		if actor == nil {
			return Deny(ReasonLoginRequired), nil
		}
		return Allow, nil

	case ActionEditComment, ActionDeleteComment:
		if resource == nil {
			return Decision{}, fmt.Errorf("%w: action %q requires a resource", ErrInvalidRequest, action)
		}
		if actor == nil {
			return Deny(ReasonLoginRequired), nil
		}
		if actor.ID == resource.OwnerID() || actor.IsAdmin() {
			return Allow, nil
		}
		return Deny(ReasonNotOwner), nil

	case ActionViewPost, ActionViewComment:
		return Allow, nil

	default:
		return Decision{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, action)
	}
}
