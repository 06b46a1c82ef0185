// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/audit"
	"github.com/taibuivan/mycollection/internal/platform/constants"
	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/sec"
	"github.com/taibuivan/mycollection/pkg/uuid"
)

// # Sentinel Errors

var (
	// ErrInvalidCredentials is the only error a failed login ever reports.
	ErrInvalidCredentials = apperr.InvalidCredentials()

	// ErrInvalidRefreshToken is the only error a failed refresh ever reports.
	ErrInvalidRefreshToken = apperr.InvalidToken("Invalid or expired refresh token")

	// ErrInactiveAccount is returned when a token outlives its account's active flag.
	ErrInactiveAccount = apperr.Forbidden("Inactive account")
)

// # Contracts & Types

// PasswordHasher is the one-way hashing primitive used for registration and login.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Verify(plainTextPassword, existingHash string) bool
}

// TokenManager mints, validates, and revokes signed tokens.
type TokenManager interface {
	IssueAccess(subject string) (*sec.IssuedToken, error)
	IssueRefresh(subject string) (*sec.IssuedToken, error)
	Validate(tokenString string, expected sec.TokenKind) (*sec.Claims, error)
	Consume(tokenString string) bool
	Revoke(tokenString string)
	AccessTTL() time.Duration
}

// RegisterInput carries the credentials of a new account.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Options tunes a [Service]. Zero values select the defaults.
type Options struct {
	Lockout           LockoutPolicy
	BootstrapUsername string
	Audit             audit.Sink
	Now               func() time.Time
}

// Service implements the session security use cases.
//
// # Login State Machine
//
//	NormalizeIdentity → LookupAccount → CheckActive → CheckLocked → VerifyPassword → Success | Failure
//
// Every terminal failure of the machine surfaces as [ErrInvalidCredentials]. Only
// collaborator faults (store errors, signing errors) surface as INTERNAL_ERROR.
//
// # Concurrency
//
// Service holds no mutable state of its own. Lockout accounting is serialized per
// account by the [LockoutTracker], and refresh single-use is enforced by the
// token manager's atomic Consume.
type Service struct {
	userRepository UserRepository
	hasher         PasswordHasher
	tokens         TokenManager
	lockout        *LockoutTracker
	audit          audit.Sink
	bootstrap      string
	now            func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(userRepository UserRepository, hasher PasswordHasher, tokens TokenManager, options Options) *Service {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.Audit == nil {
		options.Audit = audit.NopSink{}
	}
	if options.BootstrapUsername == "" {
		options.BootstrapUsername = DefaultBootstrapUsername
	}
	if options.Lockout == (LockoutPolicy{}) {
		options.Lockout = DefaultLockoutPolicy()
	}

	return &Service{
		userRepository: userRepository,
		hasher:         hasher,
		tokens:         tokens,
		lockout:        NewLockoutTracker(userRepository, options.Lockout, options.Now),
		audit:          options.Audit,
		bootstrap:      options.BootstrapUsername,
		now:            options.Now,
	}
}

// # Registration

/*
Register validates and creates a new active account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: The created account
  - error: InvalidUsername, WeakPassword, Conflict, or Internal
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// 1. Canonicalize the username
	username, err := NormalizeUsername(input.Username)
	if err != nil {
		return nil, err
	}

	// 2. Reject duplicates before paying for the hash
	exists, err := service.userRepository.Exists(context, username)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_register_exists_failed: %w", err))
	}
	if exists {
		return nil, apperr.Conflict("Username already registered")
	}

	// 3. Hash (fails with WEAK_PASSWORD before doing any work)
	passwordHash, err := service.hasher.Hash(input.Password)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("auth_register_hash_failed: %w", err))
	}

	// 4. Persist
	user, err := service.createAccount(context, username, passwordHash)
	if err != nil {
		return nil, err
	}

	service.emit(context, audit.EventRegister, username, "")
	return user, nil
}

func (service *Service) createAccount(context context.Context, username, passwordHash string) (*User, error) {
	now := service.now()
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		if apperr.HasCode(err, apperr.CodeConflict) {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("auth_create_account_failed: %w", err))
	}
	return user, nil
}

// # Authentication

/*
Authenticate runs the login state machine.

A locked account is rejected before the password hash is touched and is not
charged a failure. A wrong password is charged exactly one failure.

Parameters:
  - context: context.Context
  - rawUsername: string (As typed by the client)
  - password: string

Returns:
  - *User: The authenticated account with its counters reset
  - error: ErrInvalidCredentials, or Internal on collaborator faults
*/
func (service *Service) Authenticate(context context.Context, rawUsername, password string) (*User, error) {

	// ── NormalizeIdentity ─────────────────────────────────────────────
	username, err := normalizeIdentity(rawUsername, service.bootstrap)
	if err != nil {
		service.emit(context, audit.EventLoginFailure, strings.TrimSpace(rawUsername), reasonInvalidUsername)
		return nil, ErrInvalidCredentials
	}

	// ── LookupAccount ─────────────────────────────────────────────────
	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		if apperr.IsNotFound(err) {
			service.emit(context, audit.EventLoginFailure, username, reasonUnknownUser)
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(fmt.Errorf("auth_lookup_failed: %w", err))
	}

	// ── CheckActive ───────────────────────────────────────────────────
	if !user.IsActive {
		service.emit(context, audit.EventLoginFailure, username, reasonInactive)
		return nil, ErrInvalidCredentials
	}

	// ── CheckLocked ───────────────────────────────────────────────────
	if service.lockout.IsLocked(user) {
		service.emit(context, audit.EventLoginFailure, username, reasonLocked)
		return nil, ErrInvalidCredentials
	}

	// ── VerifyPassword ────────────────────────────────────────────────
	if !service.hasher.Verify(password, user.PasswordHash) {
		locked, err := service.lockout.RecordFailure(context, username)
		if err != nil && !apperr.IsNotFound(err) {
			return nil, apperr.Internal(fmt.Errorf("auth_record_failure_failed: %w", err))
		}

		service.emit(context, audit.EventLoginFailure, username, reasonBadPassword)
		if locked {
			service.emit(context, audit.EventAccountLocked, username, "")
		}
		return nil, ErrInvalidCredentials
	}

	// ── Success ───────────────────────────────────────────────────────
	user, err = service.lockout.RecordSuccess(context, username)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(fmt.Errorf("auth_record_success_failed: %w", err))
	}

	service.emit(context, audit.EventLoginSuccess, username, "")
	return user, nil
}

// # Sessions

/*
IssueSession mints a fresh access/refresh token pair for an authenticated account.

Parameters:
  - user: *User

Returns:
  - *Session: Token pair with the access token lifetime in seconds
  - error: Internal on signing failure
*/
func (service *Service) IssueSession(user *User) (*Session, error) {
	accessToken, err := service.tokens.IssueAccess(user.Username)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_issue_access_failed: %w", err))
	}

	refreshToken, err := service.tokens.IssueRefresh(user.Username)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_issue_refresh_failed: %w", err))
	}

	return &Session{
		AccessToken:  accessToken.Value,
		RefreshToken: refreshToken.Value,
		TokenType:    constants.TokenTypeBearer,
		ExpiresIn:    int(service.tokens.AccessTTL().Seconds()),
	}, nil
}

// Login authenticates the credentials and issues a session.
func (service *Service) Login(context context.Context, rawUsername, password string) (*Session, error) {
	user, err := service.Authenticate(context, rawUsername, password)
	if err != nil {
		return nil, err
	}
	return service.IssueSession(user)
}

/*
RefreshSession exchanges a refresh token for a new session.

The presented token is consumed atomically before the new pair is issued, so of
any number of concurrent refreshes with the same token exactly one succeeds.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *Session: The rotated token pair
  - error: ErrInvalidRefreshToken, or Internal on collaborator faults
*/
func (service *Service) RefreshSession(context context.Context, refreshToken string) (*Session, error) {

	// 1. Signature, issuer, expiry, kind, and revocation
	claims, err := service.tokens.Validate(refreshToken, sec.KindRefresh)
	if err != nil {
		service.emit(context, audit.EventRefreshRejected, "", reasonInvalidToken)
		return nil, ErrInvalidRefreshToken
	}

	// 2. The subject must still be a live, active account
	user, err := service.userRepository.FindByUsername(context, claims.Subject)
	if err != nil {
		if apperr.IsNotFound(err) {
			service.emit(context, audit.EventRefreshRejected, claims.Subject, reasonUnknownUser)
			return nil, ErrInvalidRefreshToken
		}
		return nil, apperr.Internal(fmt.Errorf("auth_refresh_lookup_failed: %w", err))
	}
	if !user.IsActive {
		service.emit(context, audit.EventRefreshRejected, claims.Subject, reasonInactive)
		return nil, ErrInvalidRefreshToken
	}

	// 3. Claim the token; losers of a concurrent race are rejected here
	if !service.tokens.Consume(refreshToken) {
		service.emit(context, audit.EventRefreshRejected, claims.Subject, reasonAlreadyUsed)
		return nil, ErrInvalidRefreshToken
	}

	// 4. Rotate
	session, err := service.IssueSession(user)
	if err != nil {
		return nil, err
	}

	service.emit(context, audit.EventRefreshSuccess, claims.Subject, "")
	return session, nil
}

/*
EndSession revokes whichever of the two tokens is non-empty. It never fails.

Parameters:
  - context: context.Context
  - accessToken: string (May be empty)
  - refreshToken: string (May be empty)
*/
func (service *Service) EndSession(context context.Context, accessToken, refreshToken string) {
	var subject string
	if claims, err := service.tokens.Validate(accessToken, sec.KindAccess); err == nil {
		subject = claims.Subject
	}

	if accessToken != "" {
		service.tokens.Revoke(accessToken)
	}
	if refreshToken != "" {
		service.tokens.Revoke(refreshToken)
	}

	service.emit(context, audit.EventLogout, subject, "")
}

// # Access Checks

// RequireValidAccess returns the subject of a valid access token or [sec.ErrInvalidToken].
func (service *Service) RequireValidAccess(accessToken string) (string, error) {
	claims, err := service.VerifyToken(accessToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyToken validates an access token. It satisfies [middleware.TokenVerifier].
func (service *Service) VerifyToken(accessToken string) (*sec.Claims, error) {
	claims, err := service.tokens.Validate(accessToken, sec.KindAccess)
	if err != nil {
		return nil, sec.ErrInvalidToken
	}
	return claims, nil
}

/*
CurrentUser resolves the subject of a verified token to a live, active account.

Parameters:
  - context: context.Context
  - subject: string (Token subject)

Returns:
  - *User: The account
  - error: sec.ErrInvalidToken when gone, ErrInactiveAccount when deactivated
*/
func (service *Service) CurrentUser(context context.Context, subject string) (*User, error) {
	user, err := service.userRepository.FindByUsername(context, subject)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, sec.ErrInvalidToken
		}
		return nil, apperr.Internal(fmt.Errorf("auth_current_user_failed: %w", err))
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	return user, nil
}

// # Account Administration

// Deactivate marks the account inactive. Outstanding tokens stop resolving through
// [Service.CurrentUser] and refreshes are rejected.
func (service *Service) Deactivate(context context.Context, username string) (*User, error) {
	user, err := service.lockout.Mutate(context, username, func(user *User) {
		user.IsActive = false
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("auth_deactivate_failed: %w", err))
	}

	service.emit(context, audit.EventDeactivate, username, "")
	return user, nil
}

/*
SeedBootstrap creates the bootstrap account when the store holds no accounts.

Parameters:
  - context: context.Context
  - username: string (Empty selects the configured bootstrap identity)
  - password: string (Empty skips seeding)

Returns:
  - bool: true when the account was created
  - error: WeakPassword or Internal
*/
func (service *Service) SeedBootstrap(context context.Context, username, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	if username == "" {
		username = service.bootstrap
	}

	count, err := service.userRepository.Count(context)
	if err != nil {
		return false, apperr.Internal(fmt.Errorf("auth_bootstrap_count_failed: %w", err))
	}
	if count > 0 {
		return false, nil
	}

	normalized, err := normalizeIdentity(username, service.bootstrap)
	if err != nil {
		return false, err
	}

	passwordHash, err := service.hasher.Hash(password)
	if err != nil {
		if apperr.IsAppError(err) {
			return false, err
		}
		return false, apperr.Internal(fmt.Errorf("auth_bootstrap_hash_failed: %w", err))
	}

	if _, err := service.createAccount(context, normalized, passwordHash); err != nil {
		if apperr.HasCode(err, apperr.CodeConflict) {
			return false, nil
		}
		return false, err
	}

	service.emit(context, audit.EventRegister, normalized, "bootstrap")
	return true, nil
}

// # Audit

// emit records a security event. Sinks never fail the caller.
func (service *Service) emit(context context.Context, eventType, username, reason string) {
	service.audit.Emit(context, audit.Event{
		Type:      eventType,
		Username:  username,
		IP:        ctxutil.GetClientIP(context),
		Reason:    reason,
		Timestamp: service.now(),
	})
}
