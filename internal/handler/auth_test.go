// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/olegiv/oblog-go/internal/auth"
	"github.com/olegiv/oblog-go/internal/model"
)

func postForm(t *testing.T, path string, values url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func newAuthHandler(t *testing.T) (*AuthHandler, func(*http.Request) *http.Request) {
	t.Helper()
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t, sm), sm, nil)
	withSession := func(r *http.Request) *http.Request {
		return requestWithSession(sm, r)
	}
	return h, withSession
}

func TestRegister_FirstUserBecomesAdmin(t *testing.T) {
	h, withSession := newAuthHandler(t)

	signUp := func(email, name string) {
		t.Helper()
		rec := httptest.NewRecorder()
		r := withSession(postForm(t, RouteRegister, url.Values{
			"email":    {email},
			"password": {"correct horse battery"},
			"name":     {name},
		}))
		h.Register(rec, r)
		assertRedirect(t, rec, redirectHome)
	}

	signUp("alice@example.com", "Alice")
	signUp("bob@example.com", "Bob")

	alice, err := h.queries.GetUserByEmail(t.Context(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if alice.Role != model.RoleAdmin {
		t.Errorf("first user Role = %q, want %q", alice.Role, model.RoleAdmin)
	}

	bob, err := h.queries.GetUserByEmail(t.Context(), "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if bob.Role != model.RoleMember {
		t.Errorf("second user Role = %q, want %q", bob.Role, model.RoleMember)
	}
}

func TestRegister_DuplicateEmailRedirectsToLogin(t *testing.T) {
	h, withSession := newAuthHandler(t)
	createTestUser(t, h.db, testUser{Email: "alice@example.com", Name: "Alice"})

	rec := httptest.NewRecorder()
	r := withSession(postForm(t, RouteRegister, url.Values{
		"email":    {"alice@example.com"},
		"password": {"another password"},
		"name":     {"Impostor"},
	}))
	h.Register(rec, r)
	assertRedirect(t, rec, redirectLogin)
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	h, withSession := newAuthHandler(t)

	rec := httptest.NewRecorder()
	r := withSession(postForm(t, RouteRegister, url.Values{
		"email":    {"alice@example.com"},
		"password": {"short"},
		"name":     {"Alice"},
	}))
	h.Register(rec, r)
	assertRedirect(t, rec, redirectRegister)

	if _, err := h.queries.GetUserByEmail(t.Context(), "alice@example.com"); err == nil {
		t.Error("user should not have been created")
	}
}

func TestLogin_Success(t *testing.T) {
	h, withSession := newAuthHandler(t)

	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	createTestUser(t, h.db, testUser{
		Email:        "alice@example.com",
		Name:         "Alice",
		Role:         model.RoleAdmin,
		PasswordHash: hash,
	})

	rec := httptest.NewRecorder()
	r := withSession(postForm(t, RouteLogin, url.Values{
		"email":    {"alice@example.com"},
		"password": {"correct horse battery"},
	}))
	h.Login(rec, r)
	assertRedirect(t, rec, redirectHome)

	// Login records the timestamp
	alice, err := h.queries.GetUserByEmail(t.Context(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if !alice.LastLoginAt.Valid {
		t.Error("LastLoginAt should be set after login")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h, withSession := newAuthHandler(t)

	hash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	createTestUser(t, h.db, testUser{
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: hash,
	})

	rec := httptest.NewRecorder()
	r := withSession(postForm(t, RouteLogin, url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong password"},
	}))
	h.Login(rec, r)
	assertRedirect(t, rec, redirectLogin)
}

func TestLogin_UnknownEmail(t *testing.T) {
	h, withSession := newAuthHandler(t)

	rec := httptest.NewRecorder()
	r := withSession(postForm(t, RouteLogin, url.Values{
		"email":    {"nobody@example.com"},
		"password": {"whatever password"},
	}))
	h.Login(rec, r)
	assertRedirect(t, rec, redirectLogin)
}

func TestLogin_StoreErrorIsServerFailure(t *testing.T) {
	h, withSession := newAuthHandler(t)

	// A store failure must not masquerade as bad credentials
	if err := h.db.Close(); err != nil {
		t.Fatalf("closing db: %v", err)
	}

	rec := httptest.NewRecorder()
	r := withSession(postForm(t, RouteLogin, url.Values{
		"email":    {"alice@example.com"},
		"password": {"correct horse battery"},
	}))
	h.Login(rec, r)
	assertStatus(t, rec.Code, http.StatusInternalServerError)
}

func TestLogout(t *testing.T) {
	h, withSession := newAuthHandler(t)
	alice := createTestUser(t, h.db, testUser{Email: "alice@example.com", Name: "Alice"})

	rec := httptest.NewRecorder()
	r := withSession(requestWithActor(httptest.NewRequest(http.MethodPost, RouteLogout, nil), &alice))
	h.Logout(rec, r)
	assertRedirect(t, rec, redirectHome)
}
