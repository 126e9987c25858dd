// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Comment represents a reader comment attached to a post.
// Anonymous comments do not exist; AuthorID always references a user.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerID returns the owning user's ID.
func (c Comment) OwnerID() int64 {
	return c.AuthorID
}
