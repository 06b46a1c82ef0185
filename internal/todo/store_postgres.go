// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mycollection/internal/platform/database/schema"
	"github.com/taibuivan/mycollection/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var todoColumns = strings.Join(schema.CollectionTodo.Columns(), ", ")

func scanTodo(row pgx.Row) (*Todo, error) {
	todo := &Todo{}
	err := row.Scan(
		&todo.ID, &todo.Title, &todo.Description, &todo.Completed,
		&todo.CreatedBy, &todo.CreatedAt, &todo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return todo, nil
}

// wrap maps a missing row to [ErrTodoNotFound] and everything else through dberr.
func wrap(err error, action string) error {
	if err == nil {
		return nil
	}
	if wrapped := dberr.Wrap(err, action); wrapped != dberr.ErrNotFound {
		return wrapped
	}
	return ErrTodoNotFound
}

func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]*Todo, int, error) {
	where := ""
	args := []any{}
	if filter.Completed != nil {
		where = fmt.Sprintf(" WHERE %s = $1", schema.CollectionTodo.Completed)
		args = append(args, *filter.Completed)
	}

	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s%s`, schema.CollectionTodo.Table, where)

	var total int
	if err := repository.db.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count_todos")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s DESC, %s DESC LIMIT $%s OFFSET $%s`,
		todoColumns, schema.CollectionTodo.Table, where,
		schema.CollectionTodo.CreatedAt, schema.CollectionTodo.ID,
		strconv.Itoa(len(args)+1), strconv.Itoa(len(args)+2),
	)
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, query, args...)
	if err != nil {
		return nil, 0, wrap(err, "list_todos")
	}
	defer rows.Close()

	todos := make([]*Todo, 0, limit)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, 0, wrap(err, "scan_todo")
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap(err, "list_todos")
	}

	return todos, total, nil
}

func (repository *PostgresRepository) Get(context context.Context, id string) (*Todo, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		todoColumns, schema.CollectionTodo.Table, schema.CollectionTodo.ID,
	)

	todo, err := scanTodo(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, wrap(err, "get_todo")
	}
	return todo, nil
}

func (repository *PostgresRepository) Create(context context.Context, todo *Todo) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING %s, %s
	`,
		schema.CollectionTodo.Table,
		schema.CollectionTodo.ID, schema.CollectionTodo.Title, schema.CollectionTodo.Description,
		schema.CollectionTodo.Completed, schema.CollectionTodo.CreatedBy,
		schema.CollectionTodo.CreatedAt, schema.CollectionTodo.UpdatedAt,
		schema.CollectionTodo.CreatedAt, schema.CollectionTodo.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query,
		todo.ID, todo.Title, todo.Description, todo.Completed, todo.CreatedBy,
	).Scan(&todo.CreatedAt, &todo.UpdatedAt)
	return wrap(err, "create_todo")
}

func (repository *PostgresRepository) Update(context context.Context, todo *Todo) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = NOW()
		WHERE %s = $1
		RETURNING %s, %s, %s
	`,
		schema.CollectionTodo.Table,
		schema.CollectionTodo.Title, schema.CollectionTodo.Description, schema.CollectionTodo.Completed,
		schema.CollectionTodo.UpdatedAt, schema.CollectionTodo.ID,
		schema.CollectionTodo.CreatedBy, schema.CollectionTodo.CreatedAt, schema.CollectionTodo.UpdatedAt,
	)

	err := repository.db.QueryRow(context, query, todo.ID, todo.Title, todo.Description, todo.Completed).
		Scan(&todo.CreatedBy, &todo.CreatedAt, &todo.UpdatedAt)
	return wrap(err, "update_todo")
}

func (repository *PostgresRepository) Toggle(context context.Context, id string) (*Todo, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = NOT %s, %s = NOW()
		WHERE %s = $1
		RETURNING %s
	`,
		schema.CollectionTodo.Table,
		schema.CollectionTodo.Completed, schema.CollectionTodo.Completed, schema.CollectionTodo.UpdatedAt,
		schema.CollectionTodo.ID, todoColumns,
	)

	todo, err := scanTodo(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, wrap(err, "toggle_todo")
	}
	return todo, nil
}

func (repository *PostgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.CollectionTodo.Table, schema.CollectionTodo.ID)

	cmd, err := repository.db.Exec(context, query, id)
	if err != nil {
		return wrap(err, "delete_todo")
	}

	if cmd.RowsAffected() == 0 {
		return ErrTodoNotFound
	}
	return nil
}
