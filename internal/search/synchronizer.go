package search

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/models"
)

// Searcher runs one search against the API.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

// SearcherFunc adapts a function to [Searcher].
type SearcherFunc func(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)

func (f SearcherFunc) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	return f(ctx, req)
}

// Recorder is told about every committed result set.
type Recorder interface {
	Record(ctx context.Context, q models.SearchQuery, result *models.SearchResult) error
}

// Options configures a [Synchronizer].
type Options struct {
	Location Location
	PageSize int
	// SessionID returns the guest session id sent with searches, or "" for signed-in users.
	SessionID func() string
	Recorder  Recorder
	Logger    *log.Logger
}

// State is a copy of the synchronizer's state.
type State struct {
	Query    string
	Filters  models.FilterSet
	Page     int
	PageSize int
	Loading  bool
	// Result is the last committed result set; nil after a failure.
	Result *models.SearchResult
	// Err and Message describe the last failure.
	Err            error
	Message        string
	SignupRequired bool
	Location       Location
}

// Synchronizer owns query text, filters, paging and results for the search surface.
type Synchronizer struct {
	searcher  Searcher
	sessionID func() string
	recorder  Recorder
	logger    *log.Logger

	mu       sync.Mutex
	location Location
	query    string
	filters  models.FilterSet
	page     int
	pageSize int
	loading  bool
	result   *models.SearchResult
	err      error
	message  string
	signup   bool
	seq      uint64
}

// NewSynchronizer creates a Synchronizer with empty filters and no results.
func NewSynchronizer(searcher Searcher, opts Options) *Synchronizer {
	s := &Synchronizer{
		searcher:  searcher,
		sessionID: opts.SessionID,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		location:  opts.Location,
		page:      models.DefaultPage,
		pageSize:  opts.PageSize,
	}
	if s.pageSize <= 0 {
		s.pageSize = models.DefaultPageSize
	}
	if s.sessionID == nil {
		s.sessionID = func() string { return "" }
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	return s
}

// SetQueryFromLocation seeds the query text from the location's q parameter and resets filters.
// It does not search.
func (s *Synchronizer) SetQueryFromLocation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = s.location.Query()
	s.filters = models.FilterSet{}
	return s.query
}

// SetLocation replaces the location, e.g. when the user follows a shared link.
func (s *Synchronizer) SetLocation(l Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = l
}

// SetQuery updates the query text without searching.
func (s *Synchronizer) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = text
}

// Submit searches for text with filters from the first page.
//
// Blank text is a no-op that returns [OutcomeEmptyQuery] without touching state or the network.
func (s *Synchronizer) Submit(ctx context.Context, text string, filters models.FilterSet) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Kind: OutcomeEmptyQuery}
	}

	s.mu.Lock()
	s.query = text
	s.filters = filters.Clone()
	s.location = s.location.WithQuery(text)
	s.mu.Unlock()

	return s.run(ctx, text, filters, models.DefaultPage)
}

// Resubmit runs the current query and filters again from the first page.
func (s *Synchronizer) Resubmit(ctx context.Context) Outcome {
	s.mu.Lock()
	text, filters := s.query, s.filters.Clone()
	s.mu.Unlock()
	return s.Submit(ctx, text, filters)
}

// NextPage fetches the page after the current result, if there is one.
func (s *Synchronizer) NextPage(ctx context.Context) (Outcome, bool) {
	return s.turnPage(ctx, 1)
}

// PrevPage fetches the page before the current result, if there is one.
func (s *Synchronizer) PrevPage(ctx context.Context) (Outcome, bool) {
	return s.turnPage(ctx, -1)
}

func (s *Synchronizer) turnPage(ctx context.Context, delta int) (Outcome, bool) {
	s.mu.Lock()
	if s.result == nil || (delta > 0 && !s.result.HasNext) || (delta < 0 && !s.result.HasPrev) {
		s.mu.Unlock()
		return Outcome{}, false
	}
	text, filters, page := s.query, s.filters.Clone(), s.page+delta
	s.mu.Unlock()

	if page < 1 {
		return Outcome{}, false
	}
	return s.run(ctx, text, filters, page), true
}

func (s *Synchronizer) run(ctx context.Context, text string, filters models.FilterSet, page int) Outcome {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	q := models.SearchQuery{Text: text, Filters: filters.Clone(), Page: page, PageSize: s.pageSize}
	s.mu.Unlock()

	req := q.Request(s.sessionID())
	s.logger.Debug("search", "query", req.Query, "page", req.Page, "seq", seq)

	result, err := s.searcher.Search(ctx, req)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale search response", "seq", seq)
		return Outcome{Kind: OutcomeStale, Result: result, Err: err}
	}

	s.loading = false
	if err != nil {
		out := Classify(err)
		s.result = nil
		s.err = out.Err
		s.message = out.Message
		s.signup = out.Kind == OutcomeSignupRequired
		s.mu.Unlock()
		return out
	}

	s.page = page
	s.result = result
	s.err = nil
	s.message = ""
	s.signup = false
	s.mu.Unlock()

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, q, result); err != nil {
			s.logger.Warn("failed to record search", "error", err)
		}
	}
	return Outcome{Kind: OutcomeResults, Result: result}
}

// UpdateFilters applies patch field by field. It never issues a request.
func (s *Synchronizer) UpdateFilters(patch models.FilterPatch) models.FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = s.filters.Merge(patch)
	return s.filters.Clone()
}

// ClearFilters resets filters to the empty set. It never issues a request.
func (s *Synchronizer) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = models.FilterSet{}
}

// Filters returns a copy of the current filters.
func (s *Synchronizer) Filters() models.FilterSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

// DismissSignup closes the signup prompt.
func (s *Synchronizer) DismissSignup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signup = false
}

// State returns a copy of the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Query:          s.query,
		Filters:        s.filters.Clone(),
		Page:           s.page,
		PageSize:       s.pageSize,
		Loading:        s.loading,
		Result:         s.result,
		Err:            s.err,
		Message:        s.message,
		SignupRequired: s.signup,
		Location:       s.location,
	}
}
