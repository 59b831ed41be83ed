package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	// MaxHistoryPerPage is the server-side cap on history page size.
	MaxHistoryPerPage = 50
)

// SearchQuery is the client-side search state that produces a [SearchRequest].
type SearchQuery struct {
	Text     string
	Filters  FilterSet
	Page     int
	PageSize int
}

// Blank reports whether the query text is empty or whitespace only.
func (q SearchQuery) Blank() bool {
	return strings.TrimSpace(q.Text) == ""
}

// Request builds the wire request. sessionID identifies anonymous users and may be empty.
func (q SearchQuery) Request(sessionID string) SearchRequest {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}

	req := SearchRequest{
		Query:     strings.TrimSpace(q.Text),
		Page:      page,
		Limit:     size,
		SessionID: sessionID,
	}
	if !q.Filters.IsEmpty() {
		filters := q.Filters.Clone()
		req.Filters = &filters
	}
	return req
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query     string     `json:"query"`
	Filters   *FilterSet `json:"filters,omitempty"`
	Page      int        `json:"page,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
}

// SearchResult is one page of results. It is replaced wholesale on every successful search.
type SearchResult struct {
	Resources []Resource `json:"resources"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"limit"`
	HasNext   bool       `json:"has_next"`
	HasPrev   bool       `json:"has_prev"`
	// RemainingSearches is the caller's remaining quota when the server reports one.
	RemainingSearches *int `json:"remaining_searches,omitempty"`
}

// Pages returns the number of pages implied by Total and PageSize.
func (r SearchResult) Pages() int {
	if r.PageSize <= 0 || r.Total <= 0 {
		return 0
	}
	return (r.Total + r.PageSize - 1) / r.PageSize
}

// SearchHistoryEntry is one search recorded server-side for an authenticated user.
type SearchHistoryEntry struct {
	ID          int             `json:"id"`
	Query       string          `json:"query"`
	RawFilters  json.RawMessage `json:"filters,omitempty"`
	ResultCount int             `json:"result_count"`
	IsFavorite  bool            `json:"is_favorite"`
	CreatedAt   Timestamp       `json:"created_at"`
}

// Filters decodes the recorded filters, which the API may send as an object or as a JSON-encoded string.
func (e SearchHistoryEntry) Filters() FilterSet {
	var f FilterSet
	raw := bytes.TrimSpace(e.RawFilters)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return f
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return f
		}
		raw = []byte(encoded)
	}

	_ = json.Unmarshal(raw, &f)
	return f
}

// FavoriteResponse is returned when a history entry is added to or removed from favorites.
type FavoriteResponse struct {
	Message string             `json:"message"`
	Search  SearchHistoryEntry `json:"search"`
}

// Pagination describes a paged listing.
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// HistoryPage is the response of GET /search/history.
type HistoryPage struct {
	Searches   []SearchHistoryEntry `json:"searches"`
	Pagination Pagination           `json:"pagination"`
}

// RateLimitStatus is the response of GET /search/rate-limit/status.
type RateLimitStatus struct {
	CanSearch         bool `json:"can_search"`
	RemainingSearches int  `json:"remaining_searches"`
	IsAuthenticated   bool `json:"is_authenticated"`
}

// Unlimited reports whether the caller has no search cap (authenticated users).
func (s RateLimitStatus) Unlimited() bool {
	return s.RemainingSearches < 0
}
