// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, Revocation)
// from the domain logic. It acts as an Infrastructure service injected into the
// Application layer through small interfaces.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/pkg/uuid"
)

// # Token Kinds

// TokenKind distinguishes short-lived access tokens from single-use refresh tokens.
// The kind is always carried explicitly in the claims and never inferred.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// ErrInvalidToken is returned for every rejected token, whatever the reason.
var ErrInvalidToken = apperr.InvalidToken("Invalid or expired token")

// # Claims

// Claims represents the payload embedded inside every token.
//
// # Why self-describing tokens?
//
// Validation needs no storage round trip: the signature, expiry, and kind are all
// inside the token. The revocation set is the only server-side state consulted.
type Claims struct {
	jwt.RegisteredClaims

	// Kind is the token type ("access" or "refresh").
	Kind TokenKind `json:"type"`
}

// IssuedToken is a freshly signed token and its metadata.
type IssuedToken struct {
	Value     string
	Kind      TokenKind
	ExpiresAt time.Time
}

// # Service Configuration

// TokenConfig configures a [TokenService].
type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Secret enables HS256 signing. Ignored when both key paths are set.
	Secret string

	// PrivateKeyPath and PublicKeyPath enable RS256 signing with PEM-encoded keys.
	PrivateKeyPath string
	PublicKeyPath  string

	// Now overrides the clock. Defaults to [time.Now].
	Now func() time.Time
}

// TokenService mints and validates signed, time-bounded tokens and owns the
// revocation set.
//
// # Concurrency
//
// All methods are safe for concurrent use. The only mutable state is the
// [RevocationSet], which carries its own lock.
type TokenService struct {
	method     jwt.SigningMethod
	signKey    any
	verifyKey  any
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    *RevocationSet
	now        func() time.Time
}

// NewTokenService creates a new TokenService.
//
// RSA keys are read from the filesystem when both paths are configured, otherwise
// the shared secret is used with HS256.
func NewTokenService(cfg TokenConfig, revoked *RevocationSet) (*TokenService, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("sec: token TTLs must be positive")
	}
	if revoked == nil {
		return nil, errors.New("sec: revocation set is required")
	}

	service := &TokenService{
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		revoked:    revoked,
		now:        cfg.Now,
	}
	if service.now == nil {
		service.now = time.Now
	}

	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		privateKey, publicKey, err := loadRSAKeys(cfg.PrivateKeyPath, cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		service.method = jwt.SigningMethodRS256
		service.signKey = privateKey
		service.verifyKey = publicKey
		return service, nil
	}

	if cfg.Secret == "" {
		return nil, errors.New("sec: either a JWT secret or an RSA key pair is required")
	}
	service.method = jwt.SigningMethodHS256
	service.signKey = []byte(cfg.Secret)
	service.verifyKey = []byte(cfg.Secret)

	return service, nil
}

// loadRSAKeys reads and parses a PEM key pair.
func loadRSAKeys(privateKeyPath, publicKeyPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return privateKey, publicKey, nil
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// # Issuance

// IssueAccess creates a signed access token for subject.
func (service *TokenService) IssueAccess(subject string) (*IssuedToken, error) {
	return service.issue(subject, KindAccess, service.accessTTL)
}

// IssueRefresh creates a signed refresh token for subject.
func (service *TokenService) IssueRefresh(subject string) (*IssuedToken, error) {
	return service.issue(subject, KindRefresh, service.refreshTTL)
}

// issue signs a token of the given kind. Every token carries a unique jti so two
// tokens minted within the same second never share a revocation entry.
func (service *TokenService) issue(subject string, kind TokenKind, timeToLive time.Duration) (*IssuedToken, error) {
	currentTime := service.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   subject,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Kind: kind,
	}

	token := jwt.NewWithClaims(service.method, claims)
	signedToken, err := token.SignedString(service.signKey)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return &IssuedToken{
		Value:     signedToken,
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// # Validation

// Validate checks signature, issuer, expiry, kind, and revocation.
//
// Every failure collapses into [ErrInvalidToken]; the sub-reason is never exposed.
func (service *TokenService) Validate(tokenString string, expected TokenKind) (*Claims, error) {
	if tokenString == "" || service.revoked.Contains(tokenString) {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{service.method.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, service.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Kind != expected || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyToken validates an access token. It satisfies the middleware verifier contract.
func (service *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	return service.Validate(tokenString, KindAccess)
}

// keyFunc returns the verification key for the configured algorithm.
func (service *TokenService) keyFunc(_ *jwt.Token) (any, error) {
	return service.verifyKey, nil
}

// # Revocation

// Revoke inserts tokenString into the revocation set.
//
// It never fails. Strings whose signature does not verify are ignored: they can
// never pass [TokenService.Validate], and storing them would let crafted input
// grow server memory. Expired or wrong-kind tokens are still recorded.
func (service *TokenService) Revoke(tokenString string) {
	_ = service.Consume(tokenString)
}

// Consume revokes tokenString and reports whether this call was the one that
// revoked it. Concurrent callers presenting the same token observe exactly one true.
func (service *TokenService) Consume(tokenString string) bool {
	if tokenString == "" {
		return false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{service.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, service.keyFunc); err != nil {
		return false
	}

	expiresAt := service.now().Add(service.refreshTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return service.revoked.Add(tokenString, expiresAt)
}

// IsRevoked reports whether tokenString is in the revocation set.
func (service *TokenService) IsRevoked(tokenString string) bool {
	return service.revoked.Contains(tokenString)
}

// Sweep drops revocation entries that are already past their natural expiry.
// It returns the number of entries removed.
func (service *TokenService) Sweep() int {
	return service.revoked.Sweep(service.now())
}
