// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination reads page/limit query parameters and builds the "meta"
// block of list responses.
package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a 1-indexed page of at most Limit items.
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of items before the page.
func (params Params) Offset() int {
	return (params.Page - 1) * params.Limit
}

// Meta describes the page that was returned.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewMeta derives the page count from total and limit.
func NewMeta(page, limit, total int) Meta {
	meta := Meta{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	meta.HasNext = page < meta.TotalPages
	return meta
}

// FromRequest parses the request's query string. See [Parse].
func FromRequest(request *http.Request) Params {
	return Parse(request.URL.Query())
}

// Parse reads "page" and "limit". Missing or malformed values take the defaults,
// and a limit above [MaxLimit] is capped rather than rejected.
func Parse(query url.Values) Params {
	params := Params{
		Page:  positiveInt(query.Get("page"), DefaultPage),
		Limit: positiveInt(query.Get("limit"), DefaultLimit),
	}
	params.Limit = min(params.Limit, MaxLimit)
	return params
}

func positiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
