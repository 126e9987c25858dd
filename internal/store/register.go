// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/oblog-go/internal/model"
)

// ErrEmailTaken is returned when a registration reuses an existing email.
var ErrEmailTaken = errors.New("store: email already registered")

// RegisterUserParams holds the fields for RegisterUser.
type RegisterUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

// RegisterUser creates a new account. The very first account ever committed
// becomes the admin; every later one is a member. The election happens
// inside the insert transaction (row-count check), and the partial unique
// index on users(role) WHERE role='admin' closes the race between two
// concurrent first registrations: the loser is retried once as a member.
func RegisterUser(ctx context.Context, db *sql.DB, arg RegisterUserParams) (model.User, error) {
	user, err := registerWithElection(ctx, db, arg)
	if err == nil {
		return user, nil
	}
	if isUniqueViolation(err, "users.email") || isUniqueViolation(err, "idx_users_email") {
		return model.User{}, ErrEmailTaken
	}
	// SQLite names the indexed column, not the index, in the violation
	// message: "UNIQUE constraint failed: users.role". users.role carries
	// no other unique constraint, so the match is unambiguous.
	if isUniqueViolation(err, "users.role") {
		// Lost the first-registration race; the other transaction holds
		// the admin seat now, so this account joins as a member.
		return insertUser(ctx, New(db), arg, model.RoleMember)
	}
	return model.User{}, err
}

func registerWithElection(ctx context.Context, db *sql.DB, arg RegisterUserParams) (model.User, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := New(tx)

	count, err := q.CountUsers(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("counting users: %w", err)
	}

	role := model.RoleMember
	if count == 0 {
		role = model.RoleAdmin
	}

	user, err := insertUser(ctx, q, arg, role)
	if err != nil {
		return model.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, fmt.Errorf("committing registration: %w", err)
	}
	return user, nil
}

func insertUser(ctx context.Context, q *Queries, arg RegisterUserParams, role string) (model.User, error) {
	now := time.Now()
	return q.CreateUser(ctx, CreateUserParams{
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         role,
		Name:         arg.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error
// on the named column or index. Both drivers in use (modernc.org/sqlite and
// mattn/go-sqlite3) include the constraint name in the error text.
func isUniqueViolation(err error, name string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, name)
}
