// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/audit"
	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/sec"
	"github.com/taibuivan/mycollection/internal/users/auth"
)

const (
	testPassword  = "correct-horse"
	wrongPassword = "wrong-horse"
)

// # Fixtures

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *testClock) Advance(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(duration)
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (sink *recordingSink) Emit(_ context.Context, event audit.Event) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, event)
}

func (sink *recordingSink) types() []string {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	types := make([]string, 0, len(sink.events))
	for _, event := range sink.events {
		types = append(types, event.Type)
	}
	return types
}

type fixture struct {
	clock      *testClock
	repository *auth.MemoryUserRepository
	tokens     *sec.TokenService
	sink       *recordingSink
	service    *auth.Service
}

func newFixture(t *testing.T, options auth.Options) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Issuer:     "mycollection-test",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Secret:     "test-secret",
		Now:        clock.Now,
	}, sec.NewRevocationSet())
	require.NoError(t, err)

	sink := &recordingSink{}
	repository := auth.NewMemoryUserRepository()

	options.Now = clock.Now
	options.Audit = sink

	return &fixture{
		clock:      clock,
		repository: repository,
		tokens:     tokens,
		sink:       sink,
		service:    auth.NewService(repository, sec.NewHasher(4, 4), tokens, options),
	}
}

func (f *fixture) register(t *testing.T, username string) *auth.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), auth.RegisterInput{Username: username, Password: testPassword})
	require.NoError(t, err)
	return user
}

func (f *fixture) stored(t *testing.T, username string) *auth.User {
	t.Helper()
	user, err := f.repository.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return user
}

// # Registration

/*
TestRegister normalizes the username and stores an active, hashed account.
*/
func TestRegister(t *testing.T) {
	f := newFixture(t, auth.Options{})

	user := f.register(t, "  Alice_01 ")

	assert.Equal(t, "alice_01", user.Username)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, testPassword, user.PasswordHash)
	assert.Contains(t, f.sink.types(), audit.EventRegister)
}

/*
TestRegister_Rejections covers every registration failure.
*/
func TestRegister_Rejections(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice_01")

	tests := []struct {
		name     string
		input    auth.RegisterInput
		wantCode string
	}{
		{"duplicate_after_normalization", auth.RegisterInput{Username: " ALICE_01", Password: testPassword}, apperr.CodeConflict},
		{"at_sign", auth.RegisterInput{Username: "alice@example", Password: testPassword}, apperr.CodeValidation},
		{"too_short", auth.RegisterInput{Username: "al", Password: testPassword}, apperr.CodeValidation},
		{"trivial_password", auth.RegisterInput{Username: "bob", Password: "test"}, apperr.CodeValidation},
		{"short_password", auth.RegisterInput{Username: "bob", Password: "xyz"}, apperr.CodeValidation},
		{"password_over_72_bytes", auth.RegisterInput{Username: "bob", Password: strings.Repeat("p", 73)}, apperr.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Register(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

// # Authentication

/*
TestAuthenticate_Success accepts any casing and surrounding whitespace.
*/
func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")

	user, err := f.service.Authenticate(context.Background(), "  ALICE ", testPassword)
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	require.NotNil(t, user.LastLoginAt)
	assert.Equal(t, f.clock.Now(), *user.LastLoginAt)
}

/*
TestAuthenticate_IndistinguishableFailures reports every failure identically.
*/
func TestAuthenticate_IndistinguishableFailures(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	f.register(t, "carol")
	_, err := f.service.Deactivate(context.Background(), "carol")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong_password", "alice", wrongPassword},
		{"unknown_user", "mallory", testPassword},
		{"inactive_user", "carol", testPassword},
		{"invalid_username", "a@b", testPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.service.Authenticate(context.Background(), tt.username, tt.password)
			assert.Nil(t, user)
			require.ErrorIs(t, err, auth.ErrInvalidCredentials)
			assert.Equal(t, auth.ErrInvalidCredentials.Message, err.Error())
		})
	}
}

/*
TestAuthenticate_Lockout locks on the threshold-th failure, rejects the correct
password while locked without charging failures, and unlocks after the duration.
*/
func TestAuthenticate_Lockout(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	ctx := context.Background()

	for range auth.DefaultLockoutThreshold - 1 {
		_, err := f.service.Authenticate(ctx, "alice", wrongPassword)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	stored := f.stored(t, "alice")
	assert.Equal(t, auth.DefaultLockoutThreshold-1, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)

	_, err := f.service.Authenticate(ctx, "alice", wrongPassword)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	stored = f.stored(t, "alice")
	require.NotNil(t, stored.LockedUntil)
	assert.Equal(t, f.clock.Now().Add(auth.DefaultLockoutDuration), *stored.LockedUntil)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Contains(t, f.sink.types(), audit.EventAccountLocked)

	// Locked: the correct password is rejected and nothing is charged.
	_, err = f.service.Authenticate(ctx, "alice", testPassword)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.service.Authenticate(ctx, "alice", wrongPassword)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, 0, f.stored(t, "alice").FailedLoginAttempts)

	// Still locked one second before expiry.
	f.clock.Advance(auth.DefaultLockoutDuration - time.Second)
	_, err = f.service.Authenticate(ctx, "alice", testPassword)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	f.clock.Advance(time.Second)
	user, err := f.service.Authenticate(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Nil(t, user.LockedUntil)
}

/*
TestAuthenticate_CustomPolicy honors a configured threshold and duration.
*/
func TestAuthenticate_CustomPolicy(t *testing.T) {
	f := newFixture(t, auth.Options{Lockout: auth.LockoutPolicy{Threshold: 3, Duration: time.Minute}})
	f.register(t, "alice")
	ctx := context.Background()

	for range 3 {
		_, _ = f.service.Authenticate(ctx, "alice", wrongPassword)
	}

	_, err := f.service.Authenticate(ctx, "alice", testPassword)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	f.clock.Advance(time.Minute)
	_, err = f.service.Authenticate(ctx, "alice", testPassword)
	require.NoError(t, err)
}

/*
TestAuthenticate_SuccessResetsCounter clears prior failures.
*/
func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	ctx := context.Background()

	for range 7 {
		_, _ = f.service.Authenticate(ctx, "alice", wrongPassword)
	}
	require.Equal(t, 7, f.stored(t, "alice").FailedLoginAttempts)

	_, err := f.service.Authenticate(ctx, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, 0, f.stored(t, "alice").FailedLoginAttempts)
}

/*
TestAuthenticate_ConcurrentFailures never loses an increment.
*/
func TestAuthenticate_ConcurrentFailures(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")

	const attempts = auth.DefaultLockoutThreshold - 2

	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.Authenticate(context.Background(), "alice", wrongPassword)
		}()
	}
	wg.Wait()

	assert.Equal(t, attempts, f.stored(t, "alice").FailedLoginAttempts)
}

/*
TestAuthenticate_AuditTrail attaches the client address to security events.
*/
func TestAuthenticate_AuditTrail(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")

	ctx := ctxutil.WithClientIP(context.Background(), "203.0.113.7")
	_, _ = f.service.Authenticate(ctx, "alice", wrongPassword)

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	last := f.sink.events[len(f.sink.events)-1]

	assert.Equal(t, audit.EventLoginFailure, last.Type)
	assert.Equal(t, "alice", last.Username)
	assert.Equal(t, "203.0.113.7", last.IP)
	assert.Equal(t, "bad_password", last.Reason)
}

// # Sessions

/*
TestIssueSession_RequireValidAccess yields the authenticated subject.
*/
func TestIssueSession_RequireValidAccess(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")

	session, err := f.service.Login(context.Background(), "alice", testPassword)
	require.NoError(t, err)

	assert.Equal(t, "bearer", session.TokenType)
	assert.Equal(t, 1800, session.ExpiresIn)

	subject, err := f.service.RequireValidAccess(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	// A refresh token never authorizes a request.
	_, err = f.service.RequireValidAccess(session.RefreshToken)
	require.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestRequireValidAccess_Expired rejects an access token at its expiry.
*/
func TestRequireValidAccess_Expired(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")

	session, err := f.service.Login(context.Background(), "alice", testPassword)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Minute)
	_, err = f.service.RequireValidAccess(session.AccessToken)
	require.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestRefreshSession_SingleUse succeeds once per refresh token.
*/
func TestRefreshSession_SingleUse(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	ctx := context.Background()

	session, err := f.service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	rotated, err := f.service.RefreshSession(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	_, err = f.service.RefreshSession(ctx, session.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

	// The rotated token is itself usable exactly once.
	_, err = f.service.RefreshSession(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

/*
TestRefreshSession_Concurrent admits exactly one of many simultaneous refreshes.
*/
func TestRefreshSession_Concurrent(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")

	session, err := f.service.Login(context.Background(), "alice", testPassword)
	require.NoError(t, err)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.RefreshSession(context.Background(), session.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

/*
TestRefreshSession_Rejections covers every refresh failure.
*/
func TestRefreshSession_Rejections(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	f.register(t, "carol")
	ctx := context.Background()

	alice, err := f.service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	carol, err := f.service.Login(ctx, "carol", testPassword)
	require.NoError(t, err)
	_, err = f.service.Deactivate(ctx, "carol")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"access_token", alice.AccessToken},
		{"inactive_account", carol.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.RefreshSession(ctx, tt.token)
			require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
		})
	}

	// Expired refresh tokens are rejected too.
	f.clock.Advance(7 * 24 * time.Hour)
	_, err = f.service.RefreshSession(ctx, alice.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

/*
TestEndSession revokes both tokens and never fails.
*/
func TestEndSession(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	ctx := context.Background()

	session, err := f.service.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	f.service.EndSession(ctx, session.AccessToken, session.RefreshToken)

	_, err = f.service.RequireValidAccess(session.AccessToken)
	require.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = f.service.RefreshSession(ctx, session.RefreshToken)
	require.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

	assert.NotPanics(t, func() {
		f.service.EndSession(ctx, "", "")
		f.service.EndSession(ctx, "garbage", "also-garbage")
		f.service.EndSession(ctx, session.AccessToken, session.RefreshToken)
	})
	assert.Contains(t, f.sink.types(), audit.EventLogout)
}

// # Account Administration

/*
TestCurrentUser resolves live accounts and rejects deactivated or deleted ones.
*/
func TestCurrentUser(t *testing.T) {
	f := newFixture(t, auth.Options{})
	f.register(t, "alice")
	ctx := context.Background()

	user, err := f.service.CurrentUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = f.service.CurrentUser(ctx, "ghost")
	require.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = f.service.Deactivate(ctx, "alice")
	require.NoError(t, err)

	_, err = f.service.CurrentUser(ctx, "alice")
	require.ErrorIs(t, err, auth.ErrInactiveAccount)

	_, err = f.service.Deactivate(ctx, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestSeedBootstrap creates the bootstrap account only on an empty store.
*/
func TestSeedBootstrap(t *testing.T) {
	f := newFixture(t, auth.Options{})
	ctx := context.Background()

	created, err := f.service.SeedBootstrap(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = f.service.SeedBootstrap(ctx, "", "TestAdmin123!")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.service.SeedBootstrap(ctx, "", "TestAdmin123!")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.service.Authenticate(ctx, "Admin", "TestAdmin123!")
	require.NoError(t, err)
}

/*
TestSeedBootstrap_ExemptIdentity lets the bootstrap name bypass username rules.
*/
func TestSeedBootstrap_ExemptIdentity(t *testing.T) {
	f := newFixture(t, auth.Options{BootstrapUsername: "ops"})
	ctx := context.Background()

	created, err := f.service.SeedBootstrap(ctx, "", "bootstrap-pass")
	require.NoError(t, err)
	require.True(t, created)

	_, err = f.service.Authenticate(ctx, " OPS ", "bootstrap-pass")
	require.NoError(t, err)

	f2 := newFixture(t, auth.Options{BootstrapUsername: "o"})
	created, err = f2.service.SeedBootstrap(ctx, "", "bootstrap-pass")
	require.NoError(t, err)
	require.True(t, created)

	_, err = f2.service.Authenticate(ctx, "O", "bootstrap-pass")
	require.NoError(t, err)

	// Ordinary registration still applies the rules.
	_, err = f2.service.Register(ctx, auth.RegisterInput{Username: "x", Password: "bootstrap-pass"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

// # Collaborator Faults

type failingRepository struct {
	*auth.MemoryUserRepository
}

var errStoreDown = errors.New("store down")

func (failingRepository) FindByUsername(context.Context, string) (*auth.User, error) {
	return nil, errStoreDown
}

/*
TestAuthenticate_StoreFailure surfaces collaborator faults as internal errors.
*/
func TestAuthenticate_StoreFailure(t *testing.T) {
	f := newFixture(t, auth.Options{})
	service := auth.NewService(failingRepository{auth.NewMemoryUserRepository()}, sec.NewHasher(4, 4), f.tokens, auth.Options{})

	_, err := service.Authenticate(context.Background(), "alice", testPassword)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInternal))
	assert.ErrorIs(t, err, errStoreDown)
}
