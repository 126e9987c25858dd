// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/oblog-go/internal/middleware"
	"github.com/olegiv/oblog-go/internal/model"
	"github.com/olegiv/oblog-go/internal/policy"
	"github.com/olegiv/oblog-go/internal/render"
	"github.com/olegiv/oblog-go/internal/service"
	"github.com/olegiv/oblog-go/internal/store"
)

// PostHandler handles the public blog pages and post management.
type PostHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
	sanitizer    *bluemonday.Policy
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(db *sql.DB, renderer *render.Renderer) *PostHandler {
	return &PostHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
		sanitizer:    bluemonday.UGCPolicy(),
	}
}

// HomeData is the template data for the homepage.
type HomeData struct {
	Posts []store.PostWithAuthor
}

// Home renders the homepage with all posts, newest first.
func (h *PostHandler) Home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queries.ListPosts(r.Context())
	if err != nil {
		logAndInternalError(w, "listing posts", "error", err)
		return
	}

	if err := h.renderer.Render(w, r, "index", render.TemplateData{
		Title: "Home",
		User:  middleware.GetUser(r),
		Data:  HomeData{Posts: posts},
	}); err != nil {
		logAndInternalError(w, "rendering homepage", "error", err)
	}
}

// ShowData is the template data for a single post page.
type ShowData struct {
	Post     model.Post
	Comments []store.CommentWithAuthor
	// CanModerate maps comment ID to whether the current actor may edit or
	// delete that comment.
	CanModerate map[int64]bool
}

// Show renders a single post with its comments.
func (h *PostHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	comments, err := h.queries.ListCommentsForPost(r.Context(), post.ID)
	if err != nil {
		logAndInternalError(w, "listing comments", "error", err, "post_id", post.ID)
		return
	}

	actor := middleware.GetUser(r)
	canModerate := make(map[int64]bool, len(comments))
	for _, c := range comments {
		decision, err := policy.Decide(actor, policy.ActionEditComment, c.Comment)
		if err != nil {
			continue
		}
		canModerate[c.ID] = decision.Allowed
	}

	if err := h.renderer.Render(w, r, "post", render.TemplateData{
		Title: post.Title,
		User:  actor,
		Data: ShowData{
			Post:        post,
			Comments:    comments,
			CanModerate: canModerate,
		},
	}); err != nil {
		logAndInternalError(w, "rendering post", "error", err, "post_id", post.ID)
	}
}

// PostFormData is the template data for the post create/edit form.
type PostFormData struct {
	Post    model.Post
	IsEdit  bool
	PostURL string
}

// NewForm renders the post creation form.
func (h *PostHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, policy.ActionCreatePost, nil) {
		return
	}

	if err := h.renderer.Render(w, r, "make-post", render.TemplateData{
		Title: "New Post",
		User:  middleware.GetUser(r),
		Data:  PostFormData{PostURL: RouteNewPost},
	}); err != nil {
		logAndInternalError(w, "rendering post form", "error", err)
	}
}

// Create handles the post creation form submission.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r, policy.ActionCreatePost, nil) {
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, RouteNewPost) {
		return
	}

	form := postFormFromRequest(r)
	if err := validate.Struct(form); err != nil {
		flashError(w, r, h.renderer, RouteNewPost, validationMessage(err))
		return
	}

	now := time.Now()
	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		Title:     form.Title,
		Subtitle:  form.Subtitle,
		Body:      h.sanitizer.Sanitize(form.Body),
		ImageURL:  form.ImageURL,
		AuthorID:  middleware.GetUserID(r),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		logAndInternalError(w, "creating post", "error", err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "user_id", post.AuthorID)
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post created",
		middleware.GetUserIDPtr(r), map[string]any{"post_id": post.ID, "title": post.Title})

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectPostID, post.ID), "Post published.")
}

// EditForm renders the post edit form.
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, ok := requireEntityWithRedirect(w, r, h.renderer, redirectHome, "post", id,
		func(id int64) (model.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	if !h.authorize(w, r, policy.ActionEditPost, post) {
		return
	}

	if err := h.renderer.Render(w, r, "make-post", render.TemplateData{
		Title: "Edit Post",
		User:  middleware.GetUser(r),
		Data: PostFormData{
			Post:    post,
			IsEdit:  true,
			PostURL: "/edit-post/" + strconv.FormatInt(post.ID, 10),
		},
	}); err != nil {
		logAndInternalError(w, "rendering post form", "error", err, "post_id", post.ID)
	}
}

// Update handles the post edit form submission.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, ok := requireEntityWithRedirect(w, r, h.renderer, redirectHome, "post", id,
		func(id int64) (model.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	if !h.authorize(w, r, policy.ActionEditPost, post) {
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, redirectHome) {
		return
	}

	form := postFormFromRequest(r)
	if err := validate.Struct(form); err != nil {
		flashError(w, r, h.renderer, "/edit-post/"+strconv.FormatInt(post.ID, 10), validationMessage(err))
		return
	}

	if err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		Title:     form.Title,
		Subtitle:  form.Subtitle,
		Body:      h.sanitizer.Sanitize(form.Body),
		ImageURL:  form.ImageURL,
		UpdatedAt: time.Now(),
		ID:        post.ID,
	}); err != nil {
		logAndInternalError(w, "updating post", "error", err, "post_id", post.ID)
		return
	}

	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post updated",
		middleware.GetUserIDPtr(r), map[string]any{"post_id": post.ID})

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectPostID, post.ID), "Post updated.")
}

// Delete handles post deletion. Comments on the post are removed with it.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, ok := requireEntityWithRedirect(w, r, h.renderer, redirectHome, "post", id,
		func(id int64) (model.Post, error) { return h.queries.GetPostByID(r.Context(), id) })
	if !ok {
		return
	}

	if !h.authorize(w, r, policy.ActionDeletePost, post) {
		return
	}

	if err := h.queries.DeletePost(r.Context(), post.ID); err != nil {
		logAndInternalError(w, "deleting post", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("post deleted", "post_id", post.ID, "user_id", middleware.GetUserID(r))
	_ = h.eventService.LogPostEvent(r.Context(), model.EventLevelInfo, "Post deleted",
		middleware.GetUserIDPtr(r), map[string]any{"post_id": post.ID, "title": post.Title})

	flashSuccess(w, r, h.renderer, redirectHome, "Post deleted.")
}

// authorize consults the access policy and handles the denial response:
// anonymous actors go to the login page, everyone else gets a 403.
func (h *PostHandler) authorize(w http.ResponseWriter, r *http.Request, action policy.Action, resource policy.Owned) bool {
	decision, err := policy.Decide(middleware.GetUser(r), action, resource)
	if err != nil {
		logAndInternalError(w, "policy decision error", "error", err, "action", string(action))
		return false
	}
	if decision.Allowed {
		return true
	}

	switch decision.Reason {
	case policy.ReasonLoginRequired:
		flashAndRedirect(w, r, h.renderer, redirectLogin, "Please log in to continue.", "info")
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
	return false
}

// parseIDParam parses a numeric chi URL parameter, writing a 404 on failure.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
