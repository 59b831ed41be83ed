package search

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/services"
	"github.com/desertthunder/lrx/internal/shared"
	tu "github.com/desertthunder/lrx/internal/testing"
)

const twoResults = `{
	"resources": [
		{"id": 1, "name": "React", "type": "documentation", "is_free": true, "difficulty_level": "beginner"},
		{"id": 2, "name": "Epic React", "type": "course", "is_free": false, "difficulty_level": "intermediate"}
	],
	"total": 2, "page": 1, "limit": 10, "has_next": false, "has_prev": false
}`

// newAPISynchronizer wires a Synchronizer to the real search client over a scripted transport.
func newAPISynchronizer(rt *tu.SequenceRoundTripper, opts Options) *Synchronizer {
	api := services.NewAPIService("http://example.com/api", &http.Client{Transport: rt})
	return NewSynchronizer(services.NewSearchService(api), opts)
}

type recorderFunc func(ctx context.Context, q models.SearchQuery, result *models.SearchResult) error

func (f recorderFunc) Record(ctx context.Context, q models.SearchQuery, result *models.SearchResult) error {
	return f(ctx, q, result)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("Blank Query Sends Nothing", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Respond(200, twoResults))
		s := newAPISynchronizer(rt, Options{})

		for _, q := range []string{"", "   ", "\t\n"} {
			out := s.Submit(ctx, q, models.FilterSet{})
			if out.Kind != OutcomeEmptyQuery {
				t.Errorf("Submit(%q) = %v, want empty query", q, out.Kind)
			}
		}
		if rt.Count() != 0 {
			t.Errorf("expected no requests, got %d", rt.Count())
		}
		if st := s.State(); st.Loading || st.Result != nil || st.Query != "" {
			t.Errorf("expected untouched state, got %+v", st)
		}
	})

	t.Run("Results Are Committed", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Respond(200, twoResults))
		s := newAPISynchronizer(rt, Options{})

		out := s.Submit(ctx, "react", models.FilterSet{})
		if out.Kind != OutcomeResults {
			t.Fatalf("expected results, got %v (%v)", out.Kind, out.Err)
		}

		st := s.State()
		if st.Result == nil || len(st.Result.Resources) != 2 {
			t.Fatalf("expected 2 resources, got %+v", st.Result)
		}
		if st.Err != nil || st.SignupRequired || st.Loading {
			t.Errorf("expected clean state, got %+v", st)
		}
		if st.Location.Query() != "react" {
			t.Errorf("expected q=react in location, got %s", st.Location.Encode())
		}
		if rt.Count() != 1 {
			t.Errorf("expected exactly 1 request, got %d", rt.Count())
		}
	})

	t.Run("Signup Message Escalates", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Respond(403, `{"error":"Please signup to continue searching"}`))
		s := newAPISynchronizer(rt, Options{})

		out := s.Submit(ctx, "react", models.FilterSet{})
		if out.Kind != OutcomeSignupRequired {
			t.Fatalf("expected signup required, got %v", out.Kind)
		}
		st := s.State()
		if !st.SignupRequired || !errors.Is(st.Err, shared.ErrSignupRequired) {
			t.Errorf("expected signup state, got %+v", st)
		}
		if errors.Is(st.Err, shared.ErrServerError) {
			t.Error("signup failure must not be a server error")
		}
	})

	t.Run("Rate Limit Code Escalates", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Respond(429, `{"error":"Search limit exceeded. Please sign up to continue searching.","code":"RATE_LIMIT_EXCEEDED","remaining_searches":0}`))
		s := newAPISynchronizer(rt, Options{})

		if out := s.Submit(ctx, "react", models.FilterSet{}); out.Kind != OutcomeSignupRequired {
			t.Errorf("expected signup required, got %v", out.Kind)
		}
	})

	t.Run("Internal Error Is A Server Error", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Respond(500, `{"error":"Internal error"}`))
		s := newAPISynchronizer(rt, Options{})

		out := s.Submit(ctx, "react", models.FilterSet{})
		if out.Kind != OutcomeFailure {
			t.Fatalf("expected failure, got %v", out.Kind)
		}
		st := s.State()
		if st.SignupRequired {
			t.Error("expected no signup prompt")
		}
		if !errors.Is(st.Err, shared.ErrServerError) {
			t.Errorf("expected ErrServerError, got %v", st.Err)
		}
		if st.Message != "Internal error" {
			t.Errorf("expected server message, got %q", st.Message)
		}
		if st.Result != nil {
			t.Errorf("expected no result after failure, got %+v", st.Result)
		}
	})

	t.Run("Sends Filters And Guest Session", func(t *testing.T) {
		var got models.SearchRequest
		s := NewSynchronizer(SearcherFunc(func(_ context.Context, req models.SearchRequest) (*models.SearchResult, error) {
			got = req
			return &models.SearchResult{}, nil
		}), Options{PageSize: 20, SessionID: func() string { return "guest-1" }})

		filters := models.FilterSet{}.Merge(models.WithTypes(models.ResourceCourse))
		s.Submit(ctx, "go", filters)

		if got.SessionID != "guest-1" || got.Limit != 20 || got.Page != 1 {
			t.Errorf("unexpected request %+v", got)
		}
		if got.Filters == nil || !got.Filters.HasType(models.ResourceCourse) {
			t.Errorf("expected course filter, got %+v", got.Filters)
		}
		if st := s.State(); st.Location.Encode() != "q=go" {
			t.Errorf("filters must not be reflected in location, got %s", st.Location.Encode())
		}
	})

	t.Run("Records Committed Results", func(t *testing.T) {
		var recorded []string
		s := NewSynchronizer(SearcherFunc(func(context.Context, models.SearchRequest) (*models.SearchResult, error) {
			return &models.SearchResult{Total: 3}, nil
		}), Options{Recorder: recorderFunc(func(_ context.Context, q models.SearchQuery, r *models.SearchResult) error {
			recorded = append(recorded, q.Text)
			return nil
		})})

		s.Submit(ctx, "rust", models.FilterSet{})
		if len(recorded) != 1 || recorded[0] != "rust" {
			t.Errorf("expected rust recorded, got %v", recorded)
		}
	})
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	s := NewSynchronizer(SearcherFunc(func(_ context.Context, req models.SearchRequest) (*models.SearchResult, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return &models.SearchResult{Resources: []models.Resource{{Name: "old"}}}, nil
		}
		return &models.SearchResult{Resources: []models.Resource{{Name: "new"}}}, nil
	}), Options{})

	var wg sync.WaitGroup
	var first Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.Submit(ctx, "first", models.FilterSet{})
	}()

	<-started
	second := s.Submit(ctx, "second", models.FilterSet{})
	close(release)
	wg.Wait()

	if second.Kind != OutcomeResults {
		t.Errorf("expected second search to commit, got %v", second.Kind)
	}
	if first.Kind != OutcomeStale {
		t.Errorf("expected first search to be stale, got %v", first.Kind)
	}

	st := s.State()
	if st.Result == nil || st.Result.Resources[0].Name != "new" {
		t.Errorf("expected newest result committed, got %+v", st.Result)
	}
	if st.Loading {
		t.Error("expected loading to be cleared")
	}
	if st.Query != "second" {
		t.Errorf("expected query second, got %q", st.Query)
	}
}

func TestFilters(t *testing.T) {
	var calls atomic.Int32
	s := NewSynchronizer(SearcherFunc(func(context.Context, models.SearchRequest) (*models.SearchResult, error) {
		calls.Add(1)
		return &models.SearchResult{}, nil
	}), Options{})

	initial := s.Filters()

	s.UpdateFilters(models.WithFree(true))
	s.UpdateFilters(models.WithFree(false))

	f := s.Filters()
	if f.IsFree == nil || *f.IsFree {
		t.Errorf("expected is_free false, got %v", f.IsFree)
	}

	s.UpdateFilters(models.WithDifficulty(models.DifficultyAdvanced))
	if f := s.Filters(); !f.HasDifficulty(models.DifficultyAdvanced) || f.Pricing() != models.PricingPaid {
		t.Errorf("expected both constraints, got %+v", f)
	}

	s.ClearFilters()
	if !s.Filters().Equal(initial) || !s.Filters().IsEmpty() {
		t.Errorf("expected initial empty filters, got %+v", s.Filters())
	}
	if calls.Load() != 0 {
		t.Errorf("filter changes must not search, got %d calls", calls.Load())
	}
}

func TestLocationSeeding(t *testing.T) {
	loc, err := ParseLocation("/search?q=machine+learning&ref=home")
	if err != nil {
		t.Fatalf("ParseLocation() error = %v", err)
	}

	s := NewSynchronizer(SearcherFunc(func(context.Context, models.SearchRequest) (*models.SearchResult, error) {
		return &models.SearchResult{}, nil
	}), Options{Location: loc})
	s.UpdateFilters(models.WithFree(true))

	if got := s.SetQueryFromLocation(); got != "machine learning" {
		t.Errorf("expected query from location, got %q", got)
	}
	st := s.State()
	if !st.Filters.IsEmpty() {
		t.Errorf("expected filters to start empty, got %+v", st.Filters)
	}

	s.Submit(context.Background(), "rust", models.FilterSet{})
	enc := s.State().Location.Encode()
	if enc != "q=rust&ref=home" {
		t.Errorf("expected other params preserved, got %s", enc)
	}
}

func TestPaging(t *testing.T) {
	var pages []int
	s := NewSynchronizer(SearcherFunc(func(_ context.Context, req models.SearchRequest) (*models.SearchResult, error) {
		pages = append(pages, req.Page)
		return &models.SearchResult{Page: req.Page, HasNext: req.Page < 2, HasPrev: req.Page > 1}, nil
	}), Options{})
	ctx := context.Background()

	if _, ok := s.NextPage(ctx); ok {
		t.Error("expected no paging before a search")
	}

	s.Submit(ctx, "go", models.FilterSet{})
	if _, ok := s.PrevPage(ctx); ok {
		t.Error("expected no previous page on page 1")
	}
	if out, ok := s.NextPage(ctx); !ok || out.Kind != OutcomeResults {
		t.Fatalf("NextPage() = %v, %v", out.Kind, ok)
	}
	if s.State().Page != 2 {
		t.Errorf("expected page 2, got %d", s.State().Page)
	}
	if _, ok := s.NextPage(ctx); ok {
		t.Error("expected no page after the last")
	}
	s.PrevPage(ctx)

	want := []int{1, 2, 1}
	if len(pages) != len(want) {
		t.Fatalf("expected pages %v, got %v", want, pages)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("expected pages %v, got %v", want, pages)
		}
	}
}

func TestDismissSignup(t *testing.T) {
	s := NewSynchronizer(SearcherFunc(func(context.Context, models.SearchRequest) (*models.SearchResult, error) {
		return nil, errors.New("please sign up")
	}), Options{})

	s.Submit(context.Background(), "go", models.FilterSet{})
	if !s.State().SignupRequired {
		t.Fatal("expected signup prompt")
	}
	s.DismissSignup()
	if s.State().SignupRequired {
		t.Error("expected prompt dismissed")
	}
}

func TestClassify(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want OutcomeKind
		msg  string
	}{
		{name: "plain signup", err: errors.New("signup required"), want: OutcomeSignupRequired, msg: defaultFailureMessage},
		{name: "mixed case", err: errors.New("Please Sign Up"), want: OutcomeSignupRequired, msg: defaultFailureMessage},
		{name: "network", err: errors.New("connection refused"), want: OutcomeFailure, msg: defaultFailureMessage},
		{name: "rate limit code", err: &services.APIError{Kind: services.KindRateLimited, Status: 429, Message: "Slow down", Code: CodeRateLimitExceeded}, want: OutcomeSignupRequired, msg: "Slow down"},
		{name: "rate limit without code", err: &services.APIError{Kind: services.KindRateLimited, Status: 429, Message: "Slow down"}, want: OutcomeFailure, msg: "Slow down"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.err)
			if out.Kind != tt.want {
				t.Errorf("Classify() = %v, want %v", out.Kind, tt.want)
			}
			if out.Message != tt.msg {
				t.Errorf("Message = %q, want %q", out.Message, tt.msg)
			}
			if !errors.Is(out.Err, tt.err) {
				t.Errorf("expected original error in chain, got %v", out.Err)
			}
		})
	}
}
