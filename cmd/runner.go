package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lrx/internal/repositories"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/services"
	"github.com/desertthunder/lrx/internal/session"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/desertthunder/lrx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// guestSessions hands out the persistent id sent with anonymous searches.
type guestSessions interface {
	GuestSessionID(ctx context.Context) (string, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	auth       *services.AuthService
	search     *services.SearchService
	session    *session.Manager
	store      session.CredentialStore
	recents    *repositories.RecentQueryRepository
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
	notices    shared.Notifier
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	// Store persists the credential between runs. Defaults to an in-memory store.
	Store session.CredentialStore
	// Recents is the local recent-query log. Optional.
	Recents    *repositories.RecentQueryRepository
	Navigator  session.Navigator
	Notifier   shared.Notifier
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.API.BaseURL, opts.HTTPClient)
	}
	if opts.Store == nil {
		opts.Store = session.NewMemoryStore(nil)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		auth:       services.NewAuthService(opts.API),
		search:     services.NewSearchService(opts.API),
		store:      opts.Store,
		recents:    opts.Recents,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.notices = opts.Notifier
	if r.notices == nil {
		r.notices = shared.NotifierFunc(r.logNotice)
	}

	r.session = session.NewManager(session.Options{
		Auth:      r.auth,
		Store:     r.store,
		Navigator: opts.Navigator,
		Notifier:  r.notices,
		Logger:    shared.WithLogger(r.logger, "component", "session"),
	})
	r.api.Authorize(r.session, r.session)
	r.api.SetNotifier(r.notices)

	var recorder search.Recorder
	if r.recents != nil {
		recorder = r.recents
	}
	r.engine = tasks.NewEngine(tasks.EngineOpts{
		Searcher:  r.search,
		History:   r.search,
		Recorder:  recorder,
		SessionID: r.guestSessionID,
		Logger:    r.logger,
	})
	return r
}

// SetLogger replaces the logger used by the runner and the API client.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.api.SetLogger(shared.WithLogger(l, "component", "api"))
}

func (r *Runner) logNotice(n shared.Notice) {
	switch n.Level {
	case shared.NoticeError:
		r.logger.Error(n.Message)
	case shared.NoticeWarn:
		r.logger.Warn(n.Message)
	default:
		r.logger.Info(n.Message)
	}
}

// restore loads the stored credential, if any, and validates it against the API.
func (r *Runner) restore(ctx context.Context) session.Session {
	return r.session.Initialize(ctx)
}

// guestSessionID returns the persistent guest id for anonymous callers and "" once signed in.
func (r *Runner) guestSessionID() string {
	if r.session.IsAuthenticated() {
		return ""
	}
	guests, ok := r.store.(guestSessions)
	if !ok {
		return ""
	}
	id, err := guests.GuestSessionID(context.Background())
	if err != nil {
		r.logger.Warn("failed to load guest session id", "error", err)
		return ""
	}
	return id
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
