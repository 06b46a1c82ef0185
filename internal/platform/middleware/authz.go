// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/constants"
	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/respond"
	"github.com/taibuivan/mycollection/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the `auth` service
// implementation, allowing us to easily inject fakes during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.Claims, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constants.TokenTypeBearer) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerToken returns the bearer token of the request, if any.
func BearerToken(request *http.Request) (string, bool) {
	return bearerToken(request.Header.Get(constants.HeaderAuthorization))
}

// Authenticate extracts and verifies the access token from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, verify it via [TokenVerifier]; any failure is a 401 INVALID_TOKEN.
//  4. Inject [*sec.Claims] and the raw token into the request context.
//
// # Parameters
//   - verifier: The TokenVerifier instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			tokenStr, ok := bearerToken(authHeader)
			if !ok {
				respond.Error(writer, request, sec.ErrInvalidToken)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				if !apperr.IsAppError(err) {
					err = sec.ErrInvalidToken
				}
				respond.Error(writer, request, err)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims, tokenStr)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
