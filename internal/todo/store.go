// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import "context"

// Repository persists the todo collection. Missing IDs yield [ErrTodoNotFound].
type Repository interface {
	List(context context.Context, filter Filter, limit, offset int) ([]*Todo, int, error)
	Get(context context.Context, id string) (*Todo, error)
	Create(context context.Context, todo *Todo) error
	Update(context context.Context, todo *Todo) error
	Toggle(context context.Context, id string) (*Todo, error)
	Delete(context context.Context, id string) error
}
