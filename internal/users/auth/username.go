// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
)

// usernamePattern is the allowed charset after lower-casing.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// InvalidUsername builds the validation error returned for a rejected username.
func InvalidUsername(message string) *apperr.AppError {
	return apperr.ValidationError("Invalid username", apperr.FieldError{
		Field:   FieldUsername,
		Message: message,
	})
}

// lower folds s to lower case. A Caser holds state, so one is built per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

/*
NormalizeUsername trims and lower-cases a username, then enforces the charset
[a-z0-9_.-] and a length of 3 to 50 characters.

Parameters:
  - raw: string (Username as typed by the client)

Returns:
  - string: The canonical username
  - error: InvalidUsername validation error
*/
func NormalizeUsername(raw string) (string, error) {
	username := lower(strings.TrimSpace(raw))

	length := utf8.RuneCountInString(username)
	if length < UsernameMinLength || length > UsernameMaxLength {
		return "", InvalidUsername(fmt.Sprintf("Must be between %d and %d characters", UsernameMinLength, UsernameMaxLength))
	}
	if !usernamePattern.MatchString(username) {
		return "", InvalidUsername("Only letters, digits, '_', '.' and '-' are allowed")
	}
	return username, nil
}

// normalizeIdentity applies [NormalizeUsername] but lets the reserved bootstrap
// identity through regardless of the charset and length rules.
func normalizeIdentity(raw, bootstrap string) (string, error) {
	username, err := NormalizeUsername(raw)
	if err == nil {
		return username, nil
	}

	candidate := lower(strings.TrimSpace(raw))
	if bootstrap != "" && candidate == lower(bootstrap) {
		return candidate, nil
	}
	return "", err
}
