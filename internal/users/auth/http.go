// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mycollection/internal/platform/middleware"
	requestutil "github.com/taibuivan/mycollection/internal/platform/request"
	"github.com/taibuivan/mycollection/internal/platform/respond"
	"github.com/taibuivan/mycollection/internal/platform/validate"
)

// # Definitions & Constructors

// Limits are the per-client admission ceilings of the identity routes.
type Limits struct {
	Register int
	Login    int
	Refresh  int
	Read     int
	Write    int
}

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// Registration, password login, refresh rotation, logout, and the caller's own
// account (/me). Every route is gated by a per-client admission ceiling.
type Handler struct {
	authService *Service
	admission   middleware.Admission
	limits      Limits
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, admission middleware.Admission, limits Limits) *Handler {
	return &Handler{authService: service, admission: admission, limits: limits}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register : Creates a new account.
//   - POST /login    : Authenticates (JSON or form) and returns a session.
//   - POST /refresh  : Rotates a refresh token into a new session.
//   - POST /logout   : Revokes the presented tokens.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.With(handler.admission.Gate(handler.limits.Register)).Post("/register", handler.register)
	router.With(handler.admission.Gate(handler.limits.Login)).Post("/login", handler.login)
	router.With(handler.admission.Gate(handler.limits.Refresh)).Post("/refresh", handler.refresh)
	router.With(handler.admission.Gate(handler.limits.Write)).Post("/logout", handler.logout)

	return router
}

// MeRoutes returns the routes operating on the authenticated caller's account.
//
// # Endpoints
//   - GET    / : Returns the caller's account.
//   - DELETE / : Deactivates the caller's account and revokes the presented token.
func (handler *Handler) MeRoutes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.Authenticate(handler.authService))
	router.Use(middleware.RequireAuth)
	router.Use(handler.RequireActive)

	router.With(handler.admission.Gate(handler.limits.Read)).Get("/", handler.me)
	router.With(handler.admission.Gate(handler.limits.Write)).Delete("/", handler.deactivate)

	return router
}

// RequireActive rejects tokens whose account was deleted or deactivated since issuance.
//
// # Usage
//
// Must be registered in the router AFTER [middleware.RequireAuth].
func (handler *Handler) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		subject, err := requestutil.RequiredSubject(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		if _, err := handler.authService.CurrentUser(request.Context(), subject); err != nil {
			respond.Error(writer, request, err)
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// # Request Payloads

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Request:
  - Body: credentialsRequest (Username, Password)

Response:
  - 201: {message, user}
  - 400: VALIDATION_ERROR: Invalid username or weak password
  - 409: CONFLICT: Username already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		FieldMessage: "User registered successfully",
		FieldUser:    user,
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Accepts a JSON body or an OAuth2 password grant form
(application/x-www-form-urlencoded with username and password).

Response:
  - 200: Session
  - 401: INVALID_CREDENTIALS: Whatever the underlying reason
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	input, err := decodeCredentials(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, input.Username).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Cache-Control", "no-store")
	respond.OK(writer, session)
}

// decodeCredentials reads username and password from a form or a JSON body.
func decodeCredentials(writer http.ResponseWriter, request *http.Request) (credentialsRequest, error) {
	if requestutil.IsForm(request) {
		request.Body = http.MaxBytesReader(writer, request.Body, 1<<20)
		if err := request.ParseForm(); err != nil {
			return credentialsRequest{}, validate.ErrInvalidJSON
		}
		return credentialsRequest{
			Username: request.PostForm.Get(FieldUsername),
			Password: request.PostForm.Get(FieldPassword),
		}, nil
	}

	var input credentialsRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		return credentialsRequest{}, err
	}
	return input, nil
}

/*
Refresh rotates a refresh token.

POST /api/v1/auth/refresh

Response:
  - 200: Session (the presented refresh token is now revoked)
  - 401: INVALID_TOKEN: Malformed, expired, wrong kind, or already used
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, input.RefreshToken)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.RefreshSession(request.Context(), strings.TrimSpace(input.RefreshToken))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Cache-Control", "no-store")
	respond.OK(writer, session)
}

/*
Logout revokes the bearer access token and the refresh token in the body.

POST /api/v1/auth/logout

Description: Best effort. Both tokens are optional and the call always succeeds,
even when the tokens are already expired or revoked.

Response:
  - 204: No Content
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	accessToken, _ := middleware.BearerToken(request)

	var input refreshRequest
	if request.ContentLength != 0 {
		_ = requestutil.DecodeJSON(writer, request, &input)
	}

	handler.authService.EndSession(request.Context(), accessToken, strings.TrimSpace(input.RefreshToken))
	respond.NoContent(writer)
}

/*
Me returns the authenticated caller's account.

GET /api/v1/me

Response:
  - 200: User
  - 401: INVALID_TOKEN
  - 403: FORBIDDEN: Account deactivated
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CurrentUser(request.Context(), subject)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
Deactivate disables the caller's own account and ends the current session.

DELETE /api/v1/me

Response:
  - 204: No Content
*/
func (handler *Handler) deactivate(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.authService.Deactivate(request.Context(), subject); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.authService.EndSession(request.Context(), requestutil.AccessToken(request), "")
	respond.NoContent(writer)
}
