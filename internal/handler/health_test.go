// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/oblog-go/internal/model"
)

func TestHealth_PublicGetsMinimalResponse(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, RouteHealth, nil))

	assertStatus(t, rec.Code, http.StatusOK)

	var status HealthStatusPublic
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", status.Status)
	}
}

func TestHealth_AdminGetsChecks(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db)
	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: model.RoleAdmin})

	rec := httptest.NewRecorder()
	r := requestWithActor(httptest.NewRequest(http.MethodGet, RouteHealth, nil), &admin)
	h.Health(rec, r)

	assertStatus(t, rec.Code, http.StatusOK)

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := status.Checks["database"]; !ok {
		t.Error("admin response should include the database check")
	}
}

func TestHealth_MemberGetsMinimalResponse(t *testing.T) {
	db := testDB(t)
	h := NewHealthHandler(db)
	bob := createTestUser(t, db, testUser{Email: "bob@example.com", Name: "Bob"})

	rec := httptest.NewRecorder()
	r := requestWithActor(httptest.NewRequest(http.MethodGet, RouteHealth, nil), &bob)
	h.Health(rec, r)

	var raw map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := raw["checks"]; ok {
		t.Error("member response should not include check details")
	}
}
