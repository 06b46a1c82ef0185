// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/taibuivan/mycollection/pkg/slice"
)

// MemoryRepository keeps the collection in process memory, newest first.
type MemoryRepository struct {
	mu    sync.RWMutex
	items []*Todo
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (repository *MemoryRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*Todo, int, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	matched := slice.Filter(repository.items, func(todo *Todo) bool {
		return filter.Completed == nil || todo.Completed == *filter.Completed
	})

	total := len(matched)
	if offset >= total {
		return []*Todo{}, total, nil
	}

	page := matched[offset:min(offset+limit, total)]
	return slice.Map(page, func(todo *Todo) *Todo {
		copied := *todo
		return &copied
	}), total, nil
}

func (repository *MemoryRepository) Get(_ context.Context, id string) (*Todo, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()

	index := repository.indexOf(id)
	if index < 0 {
		return nil, ErrTodoNotFound
	}
	copied := *repository.items[index]
	return &copied, nil
}

func (repository *MemoryRepository) Create(_ context.Context, todo *Todo) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := repository.now()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	stored := *todo
	repository.items = slices.Insert(repository.items, 0, &stored)
	return nil
}

func (repository *MemoryRepository) Update(_ context.Context, todo *Todo) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	index := repository.indexOf(todo.ID)
	if index < 0 {
		return ErrTodoNotFound
	}

	existing := repository.items[index]
	todo.CreatedBy = existing.CreatedBy
	todo.CreatedAt = existing.CreatedAt
	todo.UpdatedAt = repository.now()

	stored := *todo
	repository.items[index] = &stored
	return nil
}

func (repository *MemoryRepository) Toggle(_ context.Context, id string) (*Todo, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	index := repository.indexOf(id)
	if index < 0 {
		return nil, ErrTodoNotFound
	}

	stored := repository.items[index]
	stored.Completed = !stored.Completed
	stored.UpdatedAt = repository.now()

	copied := *stored
	return &copied, nil
}

func (repository *MemoryRepository) Delete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	index := repository.indexOf(id)
	if index < 0 {
		return ErrTodoNotFound
	}
	repository.items = slices.Delete(repository.items, index, index+1)
	return nil
}

// indexOf must be called with the lock held.
func (repository *MemoryRepository) indexOf(id string) int {
	return slices.IndexFunc(repository.items, func(todo *Todo) bool { return todo.ID == id })
}
