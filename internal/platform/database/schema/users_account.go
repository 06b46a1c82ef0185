// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns created by data/migrations.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table               string
	ID                  string
	Username            string
	Password            string
	IsActive            string
	FailedLoginAttempts string
	LockedUntil         string
	LastLoginAt         string
	CreatedAt           string
	UpdatedAt           string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:               "users.account",
	ID:                  "id",
	Username:            "username",
	Password:            "passwordhash",
	IsActive:            "isactive",
	FailedLoginAttempts: "failedloginattempts",
	LockedUntil:         "lockeduntil",
	LastLoginAt:         "lastloginat",
	CreatedAt:           "createdat",
	UpdatedAt:           "updatedat",
}

// Columns returns all standard column names in scan order
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Username, t.Password, t.IsActive, t.FailedLoginAttempts,
		t.LockedUntil, t.LastLoginAt, t.CreatedAt, t.UpdatedAt,
	}
}
