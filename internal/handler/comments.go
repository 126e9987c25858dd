// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/oblog-go/internal/mailer"
	"github.com/olegiv/oblog-go/internal/middleware"
	"github.com/olegiv/oblog-go/internal/model"
	"github.com/olegiv/oblog-go/internal/policy"
	"github.com/olegiv/oblog-go/internal/render"
	"github.com/olegiv/oblog-go/internal/service"
	"github.com/olegiv/oblog-go/internal/store"
)

// CommentHandler handles comment creation and moderation.
type CommentHandler struct {
	queries      *store.Queries
	renderer     *render.Renderer
	eventService *service.EventService
	sanitizer    *bluemonday.Policy
	mailer       *mailer.Mailer // nil when outbound mail is disabled
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(db *sql.DB, renderer *render.Renderer, m *mailer.Mailer) *CommentHandler {
	return &CommentHandler{
		queries:      store.New(db),
		renderer:     renderer,
		eventService: service.NewEventService(db),
		sanitizer:    bluemonday.UGCPolicy(),
		mailer:       m,
	}
}

// Create handles a comment submission on a post page.
// POST /post/{id}
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, ok := requireEntityWithError(w, "post", postID, func(id int64) (model.Post, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	postURL := fmt.Sprintf(redirectPostID, post.ID)

	if !h.authorize(w, r, policy.ActionCreateComment, nil, postURL) {
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	form := commentFormFromRequest(r)
	if err := validate.Struct(form); err != nil {
		flashError(w, r, h.renderer, postURL, validationMessage(err))
		return
	}

	comment, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		PostID:    post.ID,
		AuthorID:  middleware.GetUserID(r),
		Body:      h.sanitizer.Sanitize(form.Body),
		CreatedAt: time.Now(),
	})
	if err != nil {
		logAndInternalError(w, "creating comment", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("comment created", "comment_id", comment.ID, "post_id", post.ID, "user_id", comment.AuthorID)
	_ = h.eventService.LogCommentEvent(r.Context(), model.EventLevelInfo, "Comment created",
		middleware.GetUserIDPtr(r), map[string]any{"comment_id": comment.ID, "post_id": post.ID})

	if h.mailer != nil {
		actor := middleware.GetUser(r)
		// Notification delivery must not hold up the response.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.mailer.SendCommentNotification(ctx, mailer.CommentNotification{
				PostTitle:  post.Title,
				AuthorName: actor.Name,
				Body:       comment.Body,
			}); err != nil {
				slog.Warn("sending comment notification", "category", "mail", "error", err, "post_id", post.ID)
			}
		}()
	}

	flashSuccess(w, r, h.renderer, postURL, "Comment posted.")
}

// EditCommentData is the template data for the comment edit form.
type EditCommentData struct {
	Comment model.Comment
}

// EditForm renders the comment edit form.
// GET /edit-comment/{commentID}
func (h *CommentHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	commentID, ok := parseIDParam(w, r, "commentID")
	if !ok {
		return
	}

	comment, ok := requireEntityWithRedirect(w, r, h.renderer, redirectHome, "comment", commentID,
		func(id int64) (model.Comment, error) { return h.queries.GetCommentByID(r.Context(), id) })
	if !ok {
		return
	}

	if !h.authorize(w, r, policy.ActionEditComment, comment, fmt.Sprintf(redirectPostID, comment.PostID)) {
		return
	}

	if err := h.renderer.Render(w, r, "edit-comment", render.TemplateData{
		Title: "Edit Comment",
		User:  middleware.GetUser(r),
		Data:  EditCommentData{Comment: comment},
	}); err != nil {
		logAndInternalError(w, "rendering comment form", "error", err, "comment_id", comment.ID)
	}
}

// Update handles the comment edit form submission.
// POST /edit-comment/{commentID}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	commentID, ok := parseIDParam(w, r, "commentID")
	if !ok {
		return
	}

	comment, ok := requireEntityWithRedirect(w, r, h.renderer, redirectHome, "comment", commentID,
		func(id int64) (model.Comment, error) { return h.queries.GetCommentByID(r.Context(), id) })
	if !ok {
		return
	}

	postURL := fmt.Sprintf(redirectPostID, comment.PostID)

	if !h.authorize(w, r, policy.ActionEditComment, comment, postURL) {
		return
	}
	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	form := commentFormFromRequest(r)
	if err := validate.Struct(form); err != nil {
		flashError(w, r, h.renderer, "/edit-comment/"+strconv.FormatInt(comment.ID, 10), validationMessage(err))
		return
	}

	if err := h.queries.UpdateComment(r.Context(), store.UpdateCommentParams{
		Body: h.sanitizer.Sanitize(form.Body),
		ID:   comment.ID,
	}); err != nil {
		logAndInternalError(w, "updating comment", "error", err, "comment_id", comment.ID)
		return
	}

	_ = h.eventService.LogCommentEvent(r.Context(), model.EventLevelInfo, "Comment updated",
		middleware.GetUserIDPtr(r), map[string]any{"comment_id": comment.ID})

	flashSuccess(w, r, h.renderer, postURL, "Comment updated.")
}

// Delete handles comment deletion by its owner or the admin.
// POST /delete-comment/{commentID}/{postID}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	commentID, ok := parseIDParam(w, r, "commentID")
	if !ok {
		return
	}
	postID, ok := parseIDParam(w, r, "postID")
	if !ok {
		return
	}

	postURL := fmt.Sprintf(redirectPostID, postID)

	comment, ok := requireEntityWithRedirect(w, r, h.renderer, postURL, "comment", commentID,
		func(id int64) (model.Comment, error) { return h.queries.GetCommentByID(r.Context(), id) })
	if !ok {
		return
	}

	if !h.authorize(w, r, policy.ActionDeleteComment, comment, postURL) {
		return
	}

	if err := h.queries.DeleteComment(r.Context(), comment.ID); err != nil {
		logAndInternalError(w, "deleting comment", "error", err, "comment_id", comment.ID)
		return
	}

	slog.Info("comment deleted", "comment_id", comment.ID, "user_id", middleware.GetUserID(r))
	_ = h.eventService.LogCommentEvent(r.Context(), model.EventLevelInfo, "Comment deleted",
		middleware.GetUserIDPtr(r), map[string]any{"comment_id": comment.ID, "post_id": comment.PostID})

	flashSuccess(w, r, h.renderer, postURL, "Comment deleted.")
}

// authorize consults the access policy. Anonymous actors are sent to the
// login page; authenticated actors who are denied are sent back to the post
// with an explanation.
func (h *CommentHandler) authorize(w http.ResponseWriter, r *http.Request, action policy.Action, resource policy.Owned, returnURL string) bool {
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
		flashAndRedirect(w, r, h.renderer, redirectLogin, "You need to login or register to comment.", "info")
	case policy.ReasonNotOwner:
		flashError(w, r, h.renderer, returnURL, "You can only edit your own comments.")
	default:
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
	return false
}
