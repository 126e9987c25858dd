// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"strings"
	"testing"
)

func TestValidateRegisterForm(t *testing.T) {
	tests := []struct {
		name    string
		form    RegisterForm
		wantErr bool
	}{
		{"valid", RegisterForm{Email: "a@example.com", Password: "long enough", Name: "Alice"}, false},
		{"missing email", RegisterForm{Password: "long enough", Name: "Alice"}, true},
		{"bad email", RegisterForm{Email: "not-an-email", Password: "long enough", Name: "Alice"}, true},
		{"short password", RegisterForm{Email: "a@example.com", Password: "short", Name: "Alice"}, true},
		{"missing name", RegisterForm{Email: "a@example.com", Password: "long enough"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate.Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePostForm(t *testing.T) {
	valid := PostForm{Title: "Title", Body: "<p>Body</p>", ImageURL: "https://example.com/x.jpg"}
	if err := validate.Struct(valid); err != nil {
		t.Errorf("valid form rejected: %v", err)
	}

	noImage := PostForm{Title: "Title", Body: "<p>Body</p>"}
	if err := validate.Struct(noImage); err != nil {
		t.Errorf("image URL should be optional: %v", err)
	}

	badURL := PostForm{Title: "Title", Body: "<p>Body</p>", ImageURL: "not a url"}
	if err := validate.Struct(badURL); err == nil {
		t.Error("invalid image URL should be rejected")
	}
}

func TestValidationMessage(t *testing.T) {
	err := validate.Struct(RegisterForm{Email: "bad", Password: "long enough", Name: "Alice"})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	msg := validationMessage(err)
	if !strings.Contains(msg, "valid email") {
		t.Errorf("message = %q, want an email hint", msg)
	}

	err = validate.Struct(RegisterForm{Email: "a@example.com", Password: "short", Name: "Alice"})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	msg = validationMessage(err)
	if !strings.Contains(msg, "at least 8") {
		t.Errorf("message = %q, want a minimum-length hint", msg)
	}
}
