// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/mycollection/internal/platform/validate"
	"github.com/taibuivan/mycollection/pkg/pointer"
	"github.com/taibuivan/mycollection/pkg/uuid"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func validateContent(title, description string) error {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, title).
		MaxLen(FieldTitle, title, TitleMaxLength).
		MaxLen(FieldDescription, description, DescriptionMaxLength)
	return validator.Err()
}

func validateID(id string) error {
	validator := &validate.Validator{}
	validator.Custom(FieldID, !uuid.Valid(id), "Must be a valid UUID")
	return validator.Err()
}

func (service *Service) List(context context.Context, filter Filter, limit, offset int) ([]*Todo, int, error) {
	return service.repo.List(context, filter, limit, offset)
}

func (service *Service) Get(context context.Context, id string) (*Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return service.repo.Get(context, id)
}

// Create stores a new todo attributed to the authenticated subject.
func (service *Service) Create(context context.Context, subject string, input *Todo) (*Todo, error) {
	todo := &Todo{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Completed:   input.Completed,
		CreatedBy:   subject,
	}

	if err := validateContent(todo.Title, todo.Description); err != nil {
		return nil, err
	}

	if err := service.repo.Create(context, todo); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "todo_created", slog.String("todo_id", todo.ID), slog.String("created_by", subject))
	return todo, nil
}

// Update applies a partial update. Omitted fields keep their stored value.
func (service *Service) Update(context context.Context, id string, input UpdateInput) (*Todo, error) {
	existing, err := service.Get(context, id)
	if err != nil {
		return nil, err
	}

	existing.Title = strings.TrimSpace(pointer.Fallback(input.Title, existing.Title))
	existing.Description = strings.TrimSpace(pointer.Fallback(input.Description, existing.Description))
	existing.Completed = pointer.Fallback(input.Completed, existing.Completed)

	if err := validateContent(existing.Title, existing.Description); err != nil {
		return nil, err
	}

	if err := service.repo.Update(context, existing); err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "todo_updated", slog.String("todo_id", id))
	return existing, nil
}

func (service *Service) Toggle(context context.Context, id string) (*Todo, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return service.repo.Toggle(context, id)
}

func (service *Service) Delete(context context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.logger.WarnContext(context, "todo_deleted", slog.String("todo_id", id))
	return nil
}
