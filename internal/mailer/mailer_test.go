// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatContactBody(t *testing.T) {
	body := formatContactBody(ContactMessage{
		Name:    "Alice",
		Email:   "alice@example.com",
		Phone:   "555-0100",
		Message: "Hello there.",
	})

	assert.Contains(t, body, "Name: Alice")
	assert.Contains(t, body, "Email: alice@example.com")
	assert.Contains(t, body, "Phone: 555-0100")
	assert.Contains(t, body, "Hello there.")
}

func TestFormatContactBody_NoPhone(t *testing.T) {
	body := formatContactBody(ContactMessage{
		Name:    "Bob",
		Email:   "bob@example.com",
		Message: "No phone given.",
	})

	assert.NotContains(t, body, "Phone:", "empty phone line should be omitted")
}

func TestFormatCommentBody(t *testing.T) {
	body := formatCommentBody(CommentNotification{
		PostTitle:  "First Post",
		AuthorName: "Carol",
		Body:       "Nice write-up.",
	})

	assert.Contains(t, body, `Carol commented on "First Post":`)
	assert.Contains(t, body, "Nice write-up.")
}

func TestNew(t *testing.T) {
	m, err := New(Config{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "relay",
		Password:  "secret",
		From:      "blog@example.com",
		Recipient: "owner@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, m.client)
}
