package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/desertthunder/lrx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	location := search.Location{}
	if q := strings.Join(cmd.Args().Slice(), " "); strings.TrimSpace(q) != "" {
		location = location.WithQuery(q)
	} else if raw := cmd.String("location"); raw != "" {
		if location, err = search.ParseLocation(raw); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nav := ui.NewNavigator()
	notices := make(shared.ChanNotifier, 8)

	tui := r.withSurfaces(nav, notices)
	var recorder search.Recorder
	if tui.recents != nil {
		recorder = tui.recents
	}
	syncer := search.NewSynchronizer(tui.search, search.Options{
		Location:  location,
		PageSize:  tui.config.Search.PageSize,
		SessionID: tui.guestSessionID,
		Recorder:  recorder,
		Logger:    shared.WithLogger(fileLogger, "component", "search"),
	})

	model := ui.NewModel(ctx, ui.Deps{
		Session:   tui.session,
		Search:    syncer,
		Navigator: nav,
		Notices:   notices,
		Suggest:   tui.search.Suggestions,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// withSurfaces rebuilds the runner so the session manager and API client report
// navigation and notices to the TUI instead of the log.
func (r *Runner) withSurfaces(nav ui.Navigator, notices shared.ChanNotifier) *Runner {
	return NewRunner(RunnerOpts{
		Config:     r.config,
		ConfigPath: r.configPath,
		API:        r.api,
		Store:      r.store,
		Recents:    r.recents,
		Navigator:  nav,
		Notifier:   notices,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
		Output:     r.output,
	})
}
