// package tasks implements long-running operations against the search API.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 3
	MaxWorkers       = 10
	DefaultRateLimit = 2.0
	ManifestFile     = "batch_manifest.json"
)

// Status is the final state of one query in a batch.
type Status int

const (
	StatusDone Status = iota
	StatusFailed
	StatusSignupRequired
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSignupRequired:
		return "signup_required"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name in manifests.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// QueryResult is the outcome of one query in a batch.
type QueryResult struct {
	Index   int                  `json:"index"`
	Query   string               `json:"query"`
	Status  Status               `json:"status"`
	Result  *models.SearchResult `json:"-"`
	Message string               `json:"message,omitempty"`
	Err     error                `json:"-"`
	Files   []string             `json:"files,omitempty"`
	Count   int                  `json:"total"`
}

// Total returns the server-reported total, or 0 without a result.
func (r QueryResult) Total() int {
	if r.Result == nil {
		return 0
	}
	return r.Result.Total
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	TotalQueries     int           `json:"total_queries"`
	Succeeded        int           `json:"succeeded"`
	Failed           int           `json:"failed"`
	Skipped          int           `json:"skipped"`
	StoppedForSignup bool          `json:"stopped_for_signup"`
	Results          []QueryResult `json:"results"`
	OutputDirectory  string        `json:"output_directory,omitempty"`
	ManifestPath     string        `json:"-"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
}

// BatchOpts contains configuration for batch searches.
type BatchOpts struct {
	Filters    models.FilterSet // Filters applied to every query
	PageSize   int              // Results per query (default: models.DefaultPageSize)
	NumWorkers int              // Concurrent workers (default: 3, max: 10)
	RateLimit  float64          // Requests per second (default: 2)
	Format     formatter.Format // Export format for each result set
	OutputDir  string           // Export directory; nothing is written when empty
}

// HistoryClient reads the server-side search history of the current caller.
type HistoryClient interface {
	History(ctx context.Context, page, perPage int) (*models.HistoryPage, error)
	Favorites(ctx context.Context) ([]models.SearchHistoryEntry, error)
	RateLimitStatus(ctx context.Context, sessionID string) (models.RateLimitStatus, error)
}

// Engine runs batch searches and history dumps.
type Engine struct {
	searcher  search.Searcher
	history   HistoryClient
	recorder  search.Recorder
	sessionID func() string
	logger    *log.Logger
}

// EngineOpts wires an [Engine]. Searcher is required for [Engine.Batch] and History for [Engine.Dump].
type EngineOpts struct {
	Searcher  search.Searcher
	History   HistoryClient
	Recorder  search.Recorder
	SessionID func() string
	Logger    *log.Logger
}

// NewEngine creates a new Engine.
func NewEngine(opts EngineOpts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	sessionID := opts.SessionID
	if sessionID == nil {
		sessionID = func() string { return "" }
	}
	return &Engine{
		searcher:  opts.Searcher,
		history:   opts.History,
		recorder:  opts.Recorder,
		sessionID: sessionID,
		logger:    shared.WithLogger(logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

type batchJob struct {
	index int
	query string
}

// Batch searches every query with a rate-limited worker pool.
//
// The first signup-required response stops the batch: queued queries are marked skipped and the
// returned error matches [shared.ErrSignupRequired]. Other failures are recorded per query.
func (e *Engine) Batch(ctx context.Context, prog chan<- ProgressUpdate, queries []string, opts BatchOpts) (*BatchResult, error) {
	if e.searcher == nil {
		return nil, fmt.Errorf("%w: searcher not configured", shared.ErrMissingConfig)
	}

	if opts.PageSize <= 0 {
		opts.PageSize = models.DefaultPageSize
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	if opts.NumWorkers > MaxWorkers {
		opts.NumWorkers = MaxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	total := len(queries)
	result := &BatchResult{
		TotalQueries:    total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]QueryResult, 0, total),
		StartedAt:       time.Now().UTC(),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan batchJob, total)
	results := make(chan QueryResult, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.batchWorker(runCtx, cancel, &wg, jobs, results, opts)
	}

	e.sendProgress(prog, startBatchUpdate(total))

	go func() {
		defer close(jobs)
		for i, q := range queries {
			if strings.TrimSpace(q) == "" {
				results <- QueryResult{Index: i, Query: q, Status: StatusSkipped, Message: "empty query", Err: shared.ErrEmptyQuery}
				continue
			}
			if err := limiter.Wait(runCtx); err != nil {
				return
			}
			jobs <- batchJob{index: i, query: q}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	seen := make([]bool, total)
	completed := 0
	for res := range results {
		completed++
		seen[res.Index] = true

		if res.Status == StatusSignupRequired && !result.StoppedForSignup {
			result.StoppedForSignup = true
			e.sendProgress(prog, signupStopUpdate(completed, total, res.Message))
		}
		if result.StoppedForSignup && res.Status == StatusFailed && errors.Is(res.Err, context.Canceled) {
			res.Status = StatusSkipped
			res.Message = "stopped"
		}

		result.Results = append(result.Results, res)
		e.sendProgress(prog, queryCompletedUpdate(completed, total, res))
	}

	for i, q := range queries {
		if !seen[i] {
			result.Results = append(result.Results, QueryResult{Index: i, Query: q, Status: StatusSkipped, Message: "stopped"})
		}
	}
	sort.Slice(result.Results, func(a, b int) bool { return result.Results[a].Index < result.Results[b].Index })

	for _, res := range result.Results {
		switch res.Status {
		case StatusDone:
			result.Succeeded++
		case StatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
	}
	result.FinishedAt = time.Now().UTC()

	if opts.OutputDir != "" {
		manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
		data, err := shared.MarshalJSON(result, true)
		if err == nil {
			err = os.WriteFile(manifestPath, data, 0644)
		}
		if err != nil {
			return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = manifestPath
		e.sendProgress(prog, manifestUpdate(manifestPath))
	}

	e.logger.Info("batch finished", "total", total, "succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)

	if result.StoppedForSignup {
		return result, fmt.Errorf("%w: batch stopped after %d of %d queries", shared.ErrSignupRequired, result.Succeeded, total)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// batchWorker searches queries from the jobs channel until it is closed or ctx is done.
// A signup-required result calls stop before it is delivered.
func (e *Engine) batchWorker(ctx context.Context, stop context.CancelFunc, wg *sync.WaitGroup, jobs <-chan batchJob, results chan<- QueryResult, opts BatchOpts) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res := e.searchOne(ctx, job, opts)
		if res.Status == StatusSignupRequired {
			stop()
		}
		results <- res
	}
}

func (e *Engine) searchOne(ctx context.Context, job batchJob, opts BatchOpts) QueryResult {
	res := QueryResult{Index: job.index, Query: job.query}

	q := models.SearchQuery{Text: strings.TrimSpace(job.query), Filters: opts.Filters.Clone(), Page: models.DefaultPage, PageSize: opts.PageSize}
	found, err := e.searcher.Search(ctx, q.Request(e.sessionID()))
	if err != nil {
		outcome := search.Classify(err)
		res.Err = outcome.Err
		res.Message = outcome.Message
		res.Status = StatusFailed
		if outcome.Kind == search.OutcomeSignupRequired {
			res.Status = StatusSignupRequired
		}
		return res
	}

	res.Status = StatusDone
	res.Result = found
	res.Count = found.Total

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, q, found); err != nil {
			e.logger.Warn("failed to record query", "error", err)
		}
	}

	if opts.OutputDir != "" {
		path := filepath.Join(opts.OutputDir, fmt.Sprintf("%03d_%s_results.%s", job.index+1, formatter.Slug(job.query), opts.Format.Ext()))
		written, err := formatter.WriteExport(formatter.NewResultsExport(q, found), opts.Format, path)
		if err != nil {
			e.logger.Warn("failed to export results", "query", job.query, "error", err)
			res.Message = fmt.Sprintf("export failed: %v", err)
		} else {
			res.Files = []string{written}
		}
	}

	return res
}

// DumpResult contains everything the server knows about the caller's searches.
type DumpResult struct {
	History   []models.SearchHistoryEntry `json:"history"`
	Favorites []models.SearchHistoryEntry `json:"favorites"`
	RateLimit *models.RateLimitStatus     `json:"rate_limit,omitempty"`
	Errors    []EndpointResult            `json:"errors,omitempty"`
}

// EndpointResult records a failed fetch.
type EndpointResult struct {
	Endpoint string `json:"endpoint"`
	Error    error  `json:"-"`
	Message  string `json:"error"`
}

type dumpOperation struct {
	endpoint string
	phase    Phase
	message  string
	run      func(ctx context.Context, prog chan<- ProgressUpdate, result *DumpResult) error
}

// Dump fetches every history page, the favorites and the quota status.
//
// Failed endpoints are recorded in [DumpResult.Errors]; the dump itself only fails when ctx is done.
func (e *Engine) Dump(ctx context.Context, prog chan<- ProgressUpdate) (*DumpResult, error) {
	if e.history == nil {
		return nil, fmt.Errorf("%w: history client not configured", shared.ErrMissingConfig)
	}

	result := &DumpResult{
		History:   []models.SearchHistoryEntry{},
		Favorites: []models.SearchHistoryEntry{},
	}

	operations := []dumpOperation{
		{endpoint: "/search/history", phase: FetchHistory, message: "Fetching search history...", run: e.dumpHistory},
		{endpoint: "/search/favorites", phase: FetchFavorites, message: "Fetching favorites...", run: e.dumpFavorites},
		{endpoint: "/search/rate-limit/status", phase: FetchRateLimit, message: "Fetching search quota...", run: e.dumpRateLimit},
	}

	for i, op := range operations {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		e.sendProgress(prog, operationUpdate(op, i+1, len(operations)))

		if err := op.run(ctx, prog, result); err != nil {
			e.logger.Warn("dump endpoint failed", "endpoint", op.endpoint, "error", err)
			result.Errors = append(result.Errors, EndpointResult{Endpoint: op.endpoint, Error: err, Message: err.Error()})
		}
	}

	return result, ctx.Err()
}

func (e *Engine) dumpHistory(ctx context.Context, prog chan<- ProgressUpdate, result *DumpResult) error {
	for page := 1; ; page++ {
		hp, err := e.history.History(ctx, page, models.MaxHistoryPerPage)
		if err != nil {
			return err
		}
		e.sendProgress(prog, historyPageUpdate(page, hp.Pagination.Pages))
		result.History = append(result.History, hp.Searches...)
		if !hp.Pagination.HasNext || len(hp.Searches) == 0 {
			return nil
		}
	}
}

func (e *Engine) dumpFavorites(ctx context.Context, _ chan<- ProgressUpdate, result *DumpResult) error {
	favorites, err := e.history.Favorites(ctx)
	if err != nil {
		return err
	}
	result.Favorites = append(result.Favorites, favorites...)
	return nil
}

func (e *Engine) dumpRateLimit(ctx context.Context, _ chan<- ProgressUpdate, result *DumpResult) error {
	status, err := e.history.RateLimitStatus(ctx, e.sessionID())
	if err != nil {
		return err
	}
	result.RateLimit = &status
	return nil
}
