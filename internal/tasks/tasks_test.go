package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/services"
	"github.com/desertthunder/lrx/internal/shared"
)

type mockSearcher struct {
	mu       sync.Mutex
	requests []models.SearchRequest
	fail     map[string]error
	calls    atomic.Int32
}

func (m *mockSearcher) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if err, ok := m.fail[req.Query]; ok {
		return nil, err
	}
	return &models.SearchResult{
		Total:     len(req.Query),
		Page:      req.Page,
		Resources: []models.Resource{{ID: "1", Name: req.Query + " guide", Type: models.ResourceTutorial}},
	}, nil
}

type recordingRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *recordingRecorder) Record(_ context.Context, q models.SearchQuery, _ *models.SearchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q.Text)
	return nil
}

func signupError() error {
	return &services.APIError{
		Kind:    services.KindRateLimited,
		Status:  429,
		Message: "Search limit reached. Please sign up to continue.",
		Code:    search.CodeRateLimitExceeded,
	}
}

func fastOpts() BatchOpts {
	return BatchOpts{NumWorkers: 1, RateLimit: 1000}
}

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestBatch(t *testing.T) {
	t.Run("AllSucceed", func(t *testing.T) {
		searcher := &mockSearcher{}
		recorder := &recordingRecorder{}
		engine := NewEngine(EngineOpts{Searcher: searcher, Recorder: recorder, SessionID: func() string { return "guest-1" }})
		prog := make(chan ProgressUpdate, 32)

		free := true
		opts := fastOpts()
		opts.NumWorkers = 3
		opts.Filters = models.FilterSet{IsFree: &free}

		result, err := engine.Batch(context.Background(), prog, []string{"go", "python", "rust"}, opts)
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}

		if result.TotalQueries != 3 || result.Succeeded != 3 || result.Failed != 0 || result.Skipped != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		for i, want := range []string{"go", "python", "rust"} {
			if result.Results[i].Query != want || result.Results[i].Index != i {
				t.Errorf("result %d: expected %q, got %+v", i, want, result.Results[i])
			}
		}
		if result.Results[1].Total() != len("python") {
			t.Errorf("expected total %d, got %d", len("python"), result.Results[1].Total())
		}

		for _, req := range searcher.requests {
			if req.SessionID != "guest-1" {
				t.Errorf("expected guest session id, got %q", req.SessionID)
			}
			if req.Filters == nil || req.Filters.IsFree == nil || !*req.Filters.IsFree {
				t.Errorf("expected filters to be sent, got %+v", req.Filters)
			}
			if req.Page != 1 || req.Limit != models.DefaultPageSize {
				t.Errorf("expected page 1 with default size, got %d/%d", req.Page, req.Limit)
			}
		}

		if len(recorder.queries) != 3 {
			t.Errorf("expected 3 recorded queries, got %v", recorder.queries)
		}

		updates := drain(prog)
		if len(updates) != 4 {
			t.Fatalf("expected start + 3 updates, got %d", len(updates))
		}
		if updates[0].Phase != SearchQueries || updates[0].Total != 3 {
			t.Errorf("unexpected first update %+v", updates[0])
		}
	})

	t.Run("FailureIsRecorded", func(t *testing.T) {
		searcher := &mockSearcher{fail: map[string]error{
			"python": &services.APIError{Kind: services.KindServer, Status: 500, Message: services.MessageServerError},
		}}
		engine := NewEngine(EngineOpts{Searcher: searcher})

		result, err := engine.Batch(context.Background(), nil, []string{"go", "python", "rust"}, fastOpts())
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if result.Succeeded != 2 || result.Failed != 1 {
			t.Errorf("expected 2 succeeded and 1 failed, got %+v", result)
		}
		failed := result.Results[1]
		if failed.Status != StatusFailed || failed.Message != services.MessageServerError {
			t.Errorf("unexpected failed result %+v", failed)
		}
		if !errors.Is(failed.Err, shared.ErrServerError) {
			t.Errorf("expected ErrServerError, got %v", failed.Err)
		}
	})

	t.Run("BlankQueriesSkipped", func(t *testing.T) {
		searcher := &mockSearcher{}
		engine := NewEngine(EngineOpts{Searcher: searcher})

		result, err := engine.Batch(context.Background(), nil, []string{"go", "   ", ""}, fastOpts())
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if searcher.calls.Load() != 1 {
			t.Errorf("expected 1 search call, got %d", searcher.calls.Load())
		}
		if result.Skipped != 2 || !errors.Is(result.Results[1].Err, shared.ErrEmptyQuery) {
			t.Errorf("expected blank queries to be skipped, got %+v", result.Results)
		}
	})

	t.Run("SignupStopsBatch", func(t *testing.T) {
		searcher := &mockSearcher{fail: map[string]error{"b": signupError()}}
		engine := NewEngine(EngineOpts{Searcher: searcher})

		result, err := engine.Batch(context.Background(), nil, []string{"a", "b", "c", "d"}, fastOpts())
		if !errors.Is(err, shared.ErrSignupRequired) {
			t.Fatalf("expected ErrSignupRequired, got %v", err)
		}
		if !result.StoppedForSignup {
			t.Error("expected StoppedForSignup")
		}
		if len(result.Results) != 4 {
			t.Fatalf("expected every query to have a result, got %d", len(result.Results))
		}
		if result.Results[0].Status != StatusDone {
			t.Errorf("expected first query done, got %s", result.Results[0].Status)
		}
		if result.Results[1].Status != StatusSignupRequired {
			t.Errorf("expected second query signup_required, got %s", result.Results[1].Status)
		}
		if result.Results[3].Status != StatusSkipped {
			t.Errorf("expected last query skipped, got %s", result.Results[3].Status)
		}
		if got := searcher.calls.Load(); got != 2 {
			t.Errorf("expected the batch to stop early, got %d calls", got)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		engine := NewEngine(EngineOpts{Searcher: &mockSearcher{}})

		result, err := engine.Batch(ctx, nil, []string{"a", "b"}, fastOpts())
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Skipped != 2 {
			t.Errorf("expected both queries skipped, got %+v", result.Results)
		}
	})

	t.Run("ExportAndManifest", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		engine := NewEngine(EngineOpts{Searcher: &mockSearcher{}})
		prog := make(chan ProgressUpdate, 32)

		opts := fastOpts()
		opts.OutputDir = dir
		opts.Format = formatter.FormatCSV

		result, err := engine.Batch(context.Background(), prog, []string{"Go Basics", "python"}, opts)
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}

		want := filepath.Join(dir, "001_go-basics_results.csv")
		if len(result.Results[0].Files) != 1 || result.Results[0].Files[0] != want {
			t.Fatalf("expected export %q, got %v", want, result.Results[0].Files)
		}
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		if !strings.Contains(string(data), "Go Basics guide") {
			t.Errorf("unexpected export content %q", data)
		}

		if result.ManifestPath != filepath.Join(dir, ManifestFile) {
			t.Errorf("unexpected manifest path %q", result.ManifestPath)
		}
		manifest, err := os.ReadFile(result.ManifestPath)
		if err != nil {
			t.Fatalf("failed to read manifest: %v", err)
		}
		if !strings.Contains(string(manifest), `"status": "done"`) || !strings.Contains(string(manifest), `"succeeded": 2`) {
			t.Errorf("unexpected manifest %s", manifest)
		}

		updates := drain(prog)
		if last := updates[len(updates)-1]; last.Phase != WriteManifest {
			t.Errorf("expected manifest update last, got %+v", last)
		}
	})

	t.Run("MissingSearcher", func(t *testing.T) {
		engine := NewEngine(EngineOpts{})
		if _, err := engine.Batch(context.Background(), nil, []string{"a"}, fastOpts()); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

type mockHistory struct {
	pages        []models.HistoryPage
	favorites    []models.SearchHistoryEntry
	favoritesErr error
	status       models.RateLimitStatus
	sessionIDs   []string
}

func (m *mockHistory) History(_ context.Context, page, perPage int) (*models.HistoryPage, error) {
	if perPage != models.MaxHistoryPerPage {
		return nil, fmt.Errorf("unexpected per_page %d", perPage)
	}
	if page < 1 || page > len(m.pages) {
		return &models.HistoryPage{}, nil
	}
	return &m.pages[page-1], nil
}

func (m *mockHistory) Favorites(context.Context) ([]models.SearchHistoryEntry, error) {
	return m.favorites, m.favoritesErr
}

func (m *mockHistory) RateLimitStatus(_ context.Context, sessionID string) (models.RateLimitStatus, error) {
	m.sessionIDs = append(m.sessionIDs, sessionID)
	return m.status, nil
}

func TestDump(t *testing.T) {
	history := &mockHistory{
		pages: []models.HistoryPage{
			{Searches: []models.SearchHistoryEntry{{ID: 1, Query: "go"}, {ID: 2, Query: "rust"}}, Pagination: models.Pagination{Page: 1, Pages: 2, HasNext: true}},
			{Searches: []models.SearchHistoryEntry{{ID: 3, Query: "python"}}, Pagination: models.Pagination{Page: 2, Pages: 2}},
		},
		favorites: []models.SearchHistoryEntry{{ID: 2, Query: "rust", IsFavorite: true}},
		status:    models.RateLimitStatus{CanSearch: true, RemainingSearches: -1, IsAuthenticated: true},
	}

	t.Run("Success", func(t *testing.T) {
		engine := NewEngine(EngineOpts{History: history, SessionID: func() string { return "guest" }})
		prog := make(chan ProgressUpdate, 16)

		result, err := engine.Dump(context.Background(), prog)
		if err != nil {
			t.Fatalf("Dump failed: %v", err)
		}
		if len(result.History) != 3 || result.History[2].Query != "python" {
			t.Errorf("expected every history page, got %+v", result.History)
		}
		if len(result.Favorites) != 1 {
			t.Errorf("expected 1 favorite, got %d", len(result.Favorites))
		}
		if result.RateLimit == nil || !result.RateLimit.IsAuthenticated {
			t.Errorf("unexpected rate limit %+v", result.RateLimit)
		}
		if len(result.Errors) != 0 {
			t.Errorf("unexpected errors %+v", result.Errors)
		}
		if history.sessionIDs[len(history.sessionIDs)-1] != "guest" {
			t.Errorf("expected session id to be forwarded, got %v", history.sessionIDs)
		}

		phases := map[Phase]bool{}
		for _, u := range drain(prog) {
			phases[u.Phase] = true
		}
		for _, p := range []Phase{FetchHistory, FetchFavorites, FetchRateLimit} {
			if !phases[p] {
				t.Errorf("missing progress for phase %s", p)
			}
		}
	})

	t.Run("EndpointFailureIsCollected", func(t *testing.T) {
		broken := *history
		broken.favoritesErr = errors.New("boom")
		engine := NewEngine(EngineOpts{History: &broken})

		result, err := engine.Dump(context.Background(), nil)
		if err != nil {
			t.Fatalf("Dump failed: %v", err)
		}
		if len(result.Errors) != 1 || result.Errors[0].Endpoint != "/search/favorites" {
			t.Errorf("expected favorites failure, got %+v", result.Errors)
		}
		if len(result.History) != 3 || result.RateLimit == nil {
			t.Error("expected other endpoints to succeed")
		}
	})

	t.Run("MissingClient", func(t *testing.T) {
		engine := NewEngine(EngineOpts{})
		if _, err := engine.Dump(context.Background(), nil); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		SearchQueries:  "search_queries",
		ExportResults:  "export_results",
		WriteManifest:  "write_manifest",
		FetchHistory:   "fetch_history",
		FetchFavorites: "fetch_favorites",
		FetchRateLimit: "fetch_rate_limit",
		Phase(99):      "",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
