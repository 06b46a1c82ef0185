// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package todo implements the shared todo collection served behind the session
// security layer. Every route requires a valid access token.
package todo

import (
	"time"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
)

// Todo is a single item of the collection.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Filter narrows a list query.
type Filter struct {
	Completed *bool
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// ErrTodoNotFound is returned when no todo matches the ID.
var ErrTodoNotFound = apperr.NotFound("Todo")

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
	FieldID          = "id"

	TitleMaxLength       = 200
	DescriptionMaxLength = 2000
)
