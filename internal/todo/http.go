// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package todo

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mycollection/internal/platform/middleware"
	requestutil "github.com/taibuivan/mycollection/internal/platform/request"
	"github.com/taibuivan/mycollection/internal/platform/respond"
	"github.com/taibuivan/mycollection/pkg/pagination"
)

// Limits are the per-client admission ceilings of the collection routes.
type Limits struct {
	Read  int
	Write int
}

type Handler struct {
	service   *Service
	admission middleware.Admission
	limits    Limits
}

func NewHandler(service *Service, admission middleware.Admission, limits Limits) *Handler {
	return &Handler{service: service, admission: admission, limits: limits}
}

// RegisterRoutes mounts the collection on router. The caller is responsible for
// placing the router behind authentication.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	read := handler.admission.Gate(handler.limits.Read)
	write := handler.admission.Gate(handler.limits.Write)

	router.With(read).Get("/", handler.listTodos)
	router.With(read).Get("/{id}", handler.getTodo)
	router.With(write).Post("/", handler.createTodo)
	router.With(write).Put("/{id}", handler.updateTodo)
	router.With(write).Patch("/{id}/toggle", handler.toggleTodo)
	router.With(write).Delete("/{id}", handler.deleteTodo)
}

func (handler *Handler) listTodos(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	var filter Filter
	if raw := request.URL.Query().Get(FieldCompleted); raw != "" {
		if completed, err := strconv.ParseBool(raw); err == nil {
			filter.Completed = &completed
		}
	}

	todos, total, err := handler.service.List(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, todos, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) getTodo(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.service.Get(request.Context(), requestutil.ID(request, FieldID))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, todo)
}

func (handler *Handler) createTodo(writer http.ResponseWriter, request *http.Request) {
	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input Todo
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	todo, err := handler.service.Create(request.Context(), subject, &input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, todo)
}

func (handler *Handler) updateTodo(writer http.ResponseWriter, request *http.Request) {
	var input UpdateInput
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	todo, err := handler.service.Update(request.Context(), requestutil.ID(request, FieldID), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, todo)
}

func (handler *Handler) toggleTodo(writer http.ResponseWriter, request *http.Request) {
	todo, err := handler.service.Toggle(request.Context(), requestutil.ID(request, FieldID))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, todo)
}

func (handler *Handler) deleteTodo(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.Delete(request.Context(), requestutil.ID(request, FieldID)); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
