package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/lrx/internal/models"
)

// SearchService calls the /search endpoints.
type SearchService struct {
	api *APIService
}

// NewSearchService creates a [SearchService] on top of api.
func NewSearchService(api *APIService) *SearchService {
	return &SearchService{api: api}
}

// Search runs a single search. Anonymous callers identify themselves with req.SessionID.
func (s *SearchService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	var out models.SearchResult
	if err := s.api.Call(ctx, Request{Method: http.MethodPost, Path: "/search", Body: req}, &out); err != nil {
		return nil, err
	}
	if out.Resources == nil {
		out.Resources = []models.Resource{}
	}
	return &out, nil
}

// History lists the caller's server-side search history, newest first.
//
// perPage is capped at [models.MaxHistoryPerPage].
func (s *SearchService) History(ctx context.Context, page, perPage int) (*models.HistoryPage, error) {
	if page < 1 {
		page = models.DefaultPage
	}
	if perPage < 1 {
		perPage = models.DefaultPageSize
	}
	perPage = min(perPage, models.MaxHistoryPerPage)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out models.HistoryPage
	if err := s.api.Call(ctx, Request{Method: http.MethodGet, Path: "/search/history", Query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearHistory deletes the caller's server-side search history.
func (s *SearchService) ClearHistory(ctx context.Context) error {
	_, err := s.api.Do(ctx, Request{Method: http.MethodDelete, Path: "/search/history"})
	return err
}

// Favorites lists the caller's favorite searches.
func (s *SearchService) Favorites(ctx context.Context) ([]models.SearchHistoryEntry, error) {
	var out struct {
		Favorites []models.SearchHistoryEntry `json:"favorites"`
	}
	if err := s.api.Call(ctx, Request{Method: http.MethodGet, Path: "/search/favorites"}, &out); err != nil {
		return nil, err
	}
	return out.Favorites, nil
}

// SetFavorite marks or unmarks the history entry id as a favorite.
func (s *SearchService) SetFavorite(ctx context.Context, id int, favorite bool) (*models.SearchHistoryEntry, error) {
	method := http.MethodPost
	if !favorite {
		method = http.MethodDelete
	}

	var out models.FavoriteResponse
	if err := s.api.Call(ctx, Request{Method: method, Path: fmt.Sprintf("/search/favorites/%d", id)}, &out); err != nil {
		return nil, err
	}
	return &out.Search, nil
}

// RateLimitStatus reports the caller's remaining search quota.
//
// The status is advisory: when the server cannot be reached the zero status
// (no searches remaining) is returned together with the error.
func (s *SearchService) RateLimitStatus(ctx context.Context, sessionID string) (models.RateLimitStatus, error) {
	var q url.Values
	if sessionID != "" {
		q = url.Values{"session_id": []string{sessionID}}
	}

	var out models.RateLimitStatus
	if err := s.api.Call(ctx, Request{Method: http.MethodGet, Path: "/search/rate-limit/status", Query: q, NoRefresh: true}, &out); err != nil {
		return models.RateLimitStatus{}, err
	}
	return out, nil
}

// Suggestions returns popular and predefined query suggestions.
func (s *SearchService) Suggestions(ctx context.Context) ([]string, error) {
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := s.api.Call(ctx, Request{Method: http.MethodGet, Path: "/search/suggestions", NoRefresh: true}, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}
