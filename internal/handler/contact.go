// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/olegiv/oblog-go/internal/mailer"
	"github.com/olegiv/oblog-go/internal/middleware"
	"github.com/olegiv/oblog-go/internal/model"
	"github.com/olegiv/oblog-go/internal/render"
	"github.com/olegiv/oblog-go/internal/service"
)

// ContactHandler handles the static pages and the contact form.
type ContactHandler struct {
	renderer     *render.Renderer
	mailer       *mailer.Mailer // nil when SMTP is not configured
	eventService *service.EventService
}

// NewContactHandler creates a new ContactHandler. m may be nil when mail
// delivery is not configured; the form then reports a failure to the visitor.
func NewContactHandler(db *sql.DB, renderer *render.Renderer, m *mailer.Mailer) *ContactHandler {
	return &ContactHandler{
		renderer:     renderer,
		mailer:       m,
		eventService: service.NewEventService(db),
	}
}

// About renders the about page.
func (h *ContactHandler) About(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "about", render.TemplateData{
		Title: "About Me",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "rendering about page", "error", err)
	}
}

// Form renders the contact page.
func (h *ContactHandler) Form(w http.ResponseWriter, r *http.Request) {
	if err := h.renderer.Render(w, r, "contact", render.TemplateData{
		Title: "Contact Me",
		User:  middleware.GetUser(r),
	}); err != nil {
		logAndInternalError(w, "rendering contact page", "error", err)
	}
}

// Submit handles the contact form submission and forwards it by email.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectContact) {
		return
	}

	form := contactFormFromRequest(r)
	if err := validate.Struct(form); err != nil {
		flashError(w, r, h.renderer, redirectContact, validationMessage(err))
		return
	}

	if h.mailer == nil {
		slog.Warn("contact form submitted but mail is not configured", "from", form.Email)
		flashError(w, r, h.renderer, redirectContact, "Sorry, the contact form is unavailable right now.")
		return
	}

	if err := h.mailer.SendContactMessage(r.Context(), mailer.ContactMessage{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Message: form.Message,
	}); err != nil {
		slog.Error("sending contact message", "error", err)
		_ = h.eventService.LogMailEvent(r.Context(), model.EventLevelError, "Contact message delivery failed",
			middleware.GetUserIDPtr(r), map[string]any{"from": form.Email})
		flashError(w, r, h.renderer, redirectContact, "Sorry, your message could not be sent. Please try again later.")
		return
	}

	_ = h.eventService.LogMailEvent(r.Context(), model.EventLevelInfo, "Contact message sent",
		middleware.GetUserIDPtr(r), map[string]any{"from": form.Email})

	flashSuccess(w, r, h.renderer, redirectContact, "Your message has been sent. Thank you!")
}
