// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"no_rows", pgx.ErrNoRows, apperr.CodeNotFound},
		{"wrapped_no_rows", fmt.Errorf("query: %w", pgx.ErrNoRows), apperr.CodeNotFound},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, apperr.CodeConflict},
		{"check", &pgconn.PgError{Code: pgerrcode.CheckViolation}, apperr.CodeValidation},
		{"other_pg", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, apperr.CodeInternal},
		{"unknown", errors.New("boom"), apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperr.HasCode(dberr.Wrap(tt.err, "test_action"), tt.code))
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "noop"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, dberr.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})))
	assert.False(t, dberr.IsUniqueViolation(errors.New("boom")))
}
