// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for form structs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterForm is the registration form payload.
type RegisterForm struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=8,max=128"`
	Name     string `validate:"required,max=100"`
}

// LoginForm is the login form payload.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// PostForm is the post create/edit form payload.
type PostForm struct {
	Title    string `validate:"required,max=200"`
	Subtitle string `validate:"max=200"`
	Body     string `validate:"required"`
	ImageURL string `validate:"omitempty,url,max=500"`
}

// CommentForm is the comment form payload.
type CommentForm struct {
	Body string `validate:"required,max=5000"`
}

// ContactForm is the contact form payload.
type ContactForm struct {
	Name    string `validate:"required,max=100"`
	Email   string `validate:"required,email"`
	Phone   string `validate:"max=30"`
	Message string `validate:"required,max=5000"`
}

func registerFormFromRequest(r *http.Request) RegisterForm {
	return RegisterForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
		Name:     strings.TrimSpace(r.FormValue("name")),
	}
}

func loginFormFromRequest(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
}

func postFormFromRequest(r *http.Request) PostForm {
	return PostForm{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Subtitle: strings.TrimSpace(r.FormValue("subtitle")),
		Body:     r.FormValue("body"),
		ImageURL: strings.TrimSpace(r.FormValue("img_url")),
	}
}

func commentFormFromRequest(r *http.Request) CommentForm {
	return CommentForm{
		Body: strings.TrimSpace(r.FormValue("body")),
	}
}

func contactFormFromRequest(r *http.Request) ContactForm {
	return ContactForm{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}
}

// validationMessage turns a validator error into a short user-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid form data"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return "The " + field + " field is required"
	case "email":
		return "Please enter a valid email address"
	case "url":
		return "Please enter a valid URL"
	case "min":
		return "The " + field + " field must be at least " + fe.Param() + " characters"
	case "max":
		return "The " + field + " field must be at most " + fe.Param() + " characters"
	default:
		return "The " + field + " field is invalid"
	}
}
