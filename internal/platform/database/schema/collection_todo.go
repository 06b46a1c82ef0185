// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// CollectionTodoTable represents the 'collection.todo' table
type CollectionTodoTable struct {
	Table       string
	ID          string
	Title       string
	Description string
	Completed   string
	CreatedBy   string
	CreatedAt   string
	UpdatedAt   string
}

// CollectionTodo is the schema definition for collection.todo
var CollectionTodo = CollectionTodoTable{
	Table:       "collection.todo",
	ID:          "id",
	Title:       "title",
	Description: "description",
	Completed:   "completed",
	CreatedBy:   "createdby",
	CreatedAt:   "createdat",
	UpdatedAt:   "updatedat",
}

// Columns returns all standard column names in scan order
func (t CollectionTodoTable) Columns() []string {
	return []string{t.ID, t.Title, t.Description, t.Completed, t.CreatedBy, t.CreatedAt, t.UpdatedAt}
}
