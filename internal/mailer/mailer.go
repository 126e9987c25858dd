// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
)

// Config holds SMTP connection settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string // destination for contact form messages
}

// Mailer sends email through a configured SMTP relay.
type Mailer struct {
	cfg    Config
	client *mail.Client
}

// New creates a Mailer. The connection uses STARTTLS and plain auth,
// which covers the common relay setups (port 587).
func New(cfg Config) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}

	return &Mailer{cfg: cfg, client: client}, nil
}

// ContactMessage is a message submitted through the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// SendContactMessage forwards a contact form submission to the site owner.
func (m *Mailer) SendContactMessage(ctx context.Context, cm ContactMessage) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("setting From: %w", err)
	}
	if err := msg.To(m.cfg.Recipient); err != nil {
		return fmt.Errorf("setting To: %w", err)
	}
	if cm.Email != "" {
		// Replying goes to the visitor, not the relay account
		if err := msg.ReplyTo(cm.Email); err != nil {
			return fmt.Errorf("setting Reply-To: %w", err)
		}
	}

	msg.Subject("Blog Contact Form - " + cm.Name)
	msg.SetBodyString(mail.TypeTextPlain, formatContactBody(cm))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending contact message: %w", err)
	}

	slog.Info("contact message sent", "category", "mail", "from", cm.Email)
	return nil
}

// CommentNotification describes a newly posted comment.
type CommentNotification struct {
	PostTitle  string
	AuthorName string
	Body       string
}

// SendCommentNotification tells the site owner about a new comment.
func (m *Mailer) SendCommentNotification(ctx context.Context, cn CommentNotification) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("setting From: %w", err)
	}
	if err := msg.To(m.cfg.Recipient); err != nil {
		return fmt.Errorf("setting To: %w", err)
	}

	msg.Subject(fmt.Sprintf("New comment on %q", cn.PostTitle))
	msg.SetBodyString(mail.TypeTextPlain, formatCommentBody(cn))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending comment notification: %w", err)
	}

	slog.Info("comment notification sent", "category", "mail", "post", cn.PostTitle)
	return nil
}

func formatCommentBody(cn CommentNotification) string {
	var sb strings.Builder
	sb.WriteString(cn.AuthorName + " commented on \"" + cn.PostTitle + "\":\n\n")
	sb.WriteString(cn.Body)
	sb.WriteString("\n")
	return sb.String()
}

func formatContactBody(cm ContactMessage) string {
	var sb strings.Builder
	sb.WriteString("Name: " + cm.Name + "\n")
	sb.WriteString("Email: " + cm.Email + "\n")
	if cm.Phone != "" {
		sb.WriteString("Phone: " + cm.Phone + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(cm.Message)
	sb.WriteString("\n")
	return sb.String()
}
