// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
)

// # Password Policy

const (
	// DefaultMinPasswordLength is the permissive floor used by the test configuration.
	// Deployments that need production strength should raise it.
	DefaultMinPasswordLength = 4

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72

	// fieldPassword is the JSON field reported in weak password details.
	fieldPassword = "password"
)

// trivialPasswords are rejected regardless of length.
var trivialPasswords = map[string]struct{}{
	"123":  {},
	"abc":  {},
	"test": {},
}

// Hasher is the one-way password hashing primitive.
//
// # Concurrency
//
// Hasher is immutable after construction and safe for concurrent use. Hash and
// Verify are deliberately expensive (bcrypt work factor) and dominate login latency.
type Hasher struct {
	minLength int
	cost      int
}

// NewHasher builds a bcrypt [Hasher]. Out-of-range values fall back to defaults.
func NewHasher(minLength, cost int) *Hasher {
	if minLength < 1 {
		minLength = DefaultMinPasswordLength
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{minLength: minLength, cost: cost}
}

// WeakPassword builds the validation error returned when a password fails the policy.
func WeakPassword(message string) *apperr.AppError {
	return apperr.ValidationError("Weak password", apperr.FieldError{
		Field:   fieldPassword,
		Message: message,
	})
}

// CheckStrength reports whether plaintext meets the configured policy.
func (hasher *Hasher) CheckStrength(plainTextPassword string) error {
	if utf8.RuneCountInString(plainTextPassword) < hasher.minLength {
		return WeakPassword(fmt.Sprintf("Minimum %d characters", hasher.minLength))
	}
	if len(plainTextPassword) > MaxPasswordBytes {
		return WeakPassword(fmt.Sprintf("Maximum %d bytes", MaxPasswordBytes))
	}
	if _, trivial := trivialPasswords[strings.ToLower(plainTextPassword)]; trivial {
		return WeakPassword("Password is too simple")
	}
	return nil
}

// Hash hashes a plain-text password using the bcrypt algorithm.
//
// It fails with a WEAK_PASSWORD validation error before doing any expensive work
// when the password does not meet the policy.
func (hasher *Hasher) Hash(plainTextPassword string) (string, error) {
	if err := hasher.CheckStrength(plainTextPassword); err != nil {
		return "", err
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
//
// A malformed digest verifies false. The answer is terminal and must never be retried.
func (hasher *Hasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
