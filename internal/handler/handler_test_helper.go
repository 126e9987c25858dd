package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/oblog-go/internal/middleware"
	"github.com/olegiv/oblog-go/internal/model"
	"github.com/olegiv/oblog-go/internal/render"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A single connection keeps one :memory: database alive and makes the
	// foreign_keys pragma, which is per-connection, apply to every query.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX idx_users_email ON users(email);
		CREATE UNIQUE INDEX idx_users_single_admin ON users(role) WHERE role = 'admin';

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX idx_sessions_expiry ON sessions(expiry);

		CREATE TABLE posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			subtitle TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			author_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id)
		);
		CREATE INDEX idx_posts_author_id ON posts(author_id);
		CREATE INDEX idx_posts_created_at ON posts(created_at DESC);

		CREATE TABLE comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			post_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
			FOREIGN KEY (author_id) REFERENCES users(id)
		);
		CREATE INDEX idx_comments_post_id ON comments(post_id);
		CREATE INDEX idx_comments_author_id ON comments(author_id);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		);
		CREATE INDEX idx_events_created_at ON events(created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer with a minimal template set.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()
	r, err := render.New(render.Config{
		TemplatesFS:    testTemplatesFS(),
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("creating test renderer: %v", err)
	}
	return r
}

// testTemplatesFS returns a minimal template set covering every page the
// handlers render.
func testTemplatesFS() fstest.MapFS {
	base := &fstest.MapFile{
		Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`),
	}
	page := func(body string) *fstest.MapFile {
		return &fstest.MapFile{Data: []byte(`{{define "content"}}` + body + `{{end}}`)}
	}

	return fstest.MapFS{
		"layouts/base.html":       base,
		"pages/index.html":        page(`<h1>{{.Title}}</h1>{{range .Data.Posts}}<h2>{{.Title}}</h2>{{end}}`),
		"pages/post.html":         page(`<h1>{{.Data.Post.Title}}</h1>{{range .Data.Comments}}<p>{{.Body}}</p>{{end}}`),
		"pages/make-post.html":    page(`<form action="{{.Data.PostURL}}"></form>`),
		"pages/register.html":     page(`<h1>{{.Title}}</h1>`),
		"pages/login.html":        page(`<h1>{{.Title}}</h1>`),
		"pages/about.html":        page(`<h1>{{.Title}}</h1>`),
		"pages/contact.html":      page(`<h1>{{.Title}}</h1>`),
		"pages/edit-comment.html": page(`<textarea>{{.Data.Comment.Body}}</textarea>`),
	}
}

// testUser describes a user to seed into the test database.
type testUser struct {
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *sql.DB, user testUser) model.User {
	t.Helper()

	if user.PasswordHash == "" {
		// Placeholder argon2id hash, not a real credential
		user.PasswordHash = "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHQ$RdescudvJCsgt3ub+b+dWRWJTmaaJObG"
	}
	if user.Role == "" {
		user.Role = model.RoleMember
	}

	now := time.Now()
	result, err := db.Exec(
		`INSERT INTO users (email, password_hash, role, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Role, user.Name, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return model.User{
		ID:           id,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		Name:         user.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// createTestPost inserts a post directly into the database.
func createTestPost(t *testing.T, db *sql.DB, authorID int64, title string) model.Post {
	t.Helper()

	now := time.Now()
	result, err := db.Exec(
		`INSERT INTO posts (title, subtitle, body, image_url, author_id, created_at, updated_at) VALUES (?, '', '<p>Body</p>', '', ?, ?, ?)`,
		title, authorID, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}

	id, _ := result.LastInsertId()
	return model.Post{
		ID:        id,
		Title:     title,
		Body:      "<p>Body</p>",
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// createTestComment inserts a comment directly into the database.
func createTestComment(t *testing.T, db *sql.DB, postID, authorID int64, body string) model.Comment {
	t.Helper()

	now := time.Now()
	result, err := db.Exec(
		`INSERT INTO comments (post_id, author_id, body, created_at) VALUES (?, ?, ?, ?)`,
		postID, authorID, body, now,
	)
	if err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}

	id, _ := result.LastInsertId()
	return model.Comment{
		ID:        id,
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
	}
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession wraps a request with session context.
func requestWithSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// requestWithActor puts the user into the request context the way the
// user-loading middleware does. user may be nil for anonymous requests.
func requestWithActor(r *http.Request, user *model.User) *http.Request {
	if user == nil {
		return r
	}
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, *user)
	return r.WithContext(ctx)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// assertRedirect checks for a 303 redirect to the expected location.
func assertRedirect(t *testing.T, rec interface {
	Result() *http.Response
}, want string) {
	t.Helper()
	res := rec.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d; want %d", res.StatusCode, http.StatusSeeOther)
	}
	if got := res.Header.Get("Location"); got != want {
		t.Errorf("Location = %q; want %q", got, want)
	}
}
