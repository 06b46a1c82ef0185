// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mycollection/internal/platform/apperr"
	"github.com/taibuivan/mycollection/internal/platform/constants"
	"github.com/taibuivan/mycollection/internal/platform/ctxutil"
	"github.com/taibuivan/mycollection/internal/platform/middleware"
	"github.com/taibuivan/mycollection/internal/platform/sec"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(token string) (*sec.Claims, error) {
	if token != "good" {
		return nil, sec.ErrInvalidToken
	}
	return &sec.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}, Kind: sec.KindAccess}, nil
}

/*
TestAuthenticate covers anonymous, malformed, rejected, and accepted headers.
*/
func TestAuthenticate(t *testing.T) {
	var subject, token string
	handler := middleware.Authenticate(fakeVerifier{})(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		subject, token = "", ""
		if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
			subject = claims.Subject
		}
		token = ctxutil.GetAccessToken(request.Context())
		writer.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantSubject string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"wrong_scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty_token", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid_token", "Bearer bad", http.StatusUnauthorized, ""},
		{"valid_token", "Bearer good", http.StatusOK, "alice"},
		{"lowercase_scheme", "bearer good", http.StatusOK, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject = ""
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, apperr.CodeInvalidToken, decodeCode(t, recorder))
				assert.Equal(t, "Bearer", recorder.Header().Get(constants.HeaderWWWAuthenticate))
				return
			}
			assert.Equal(t, tt.wantSubject, subject)
			if tt.wantSubject != "" {
				assert.Equal(t, "good", token)
			}
		})
	}
}

/*
TestRequireAuth rejects anonymous requests.
*/
func TestRequireAuth(t *testing.T) {
	handler := middleware.Authenticate(fakeVerifier{})(middleware.RequireAuth(okHandler()))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, apperr.CodeUnauthorized, decodeCode(t, recorder))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderAuthorization, "Bearer good")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
