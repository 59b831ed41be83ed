package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/shared"
	"github.com/desertthunder/lrx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// buildFilters turns the search flags into a [models.FilterSet].
func buildFilters(types, difficulty, categories []string, free, paid bool, minRating float64) (models.FilterSet, error) {
	if free && paid {
		return models.FilterSet{}, fmt.Errorf("%w: --free and --paid are mutually exclusive", shared.ErrInvalidFlag)
	}

	patch := models.FilterPatch{}
	if len(types) > 0 {
		parsed := make([]models.ResourceType, 0, len(types))
		for _, t := range splitList(types) {
			rt, err := models.ParseResourceType(t)
			if err != nil {
				return models.FilterSet{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
			}
			parsed = append(parsed, rt)
		}
		patch = patch.And(models.WithTypes(parsed...))
	}
	if len(difficulty) > 0 {
		parsed := make([]models.DifficultyLevel, 0, len(difficulty))
		for _, d := range splitList(difficulty) {
			level, err := models.ParseDifficultyLevel(d)
			if err != nil {
				return models.FilterSet{}, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
			}
			parsed = append(parsed, level)
		}
		patch = patch.And(models.WithDifficulty(parsed...))
	}
	if len(categories) > 0 {
		patch = patch.And(models.WithCategories(splitList(categories)...))
	}
	if free || paid {
		patch = patch.And(models.WithFree(free))
	}
	if minRating < 0 || minRating > 5 {
		return models.FilterSet{}, fmt.Errorf("%w: --min-rating must be between 0 and 5", shared.ErrInvalidFlag)
	}
	if minRating > 0 {
		patch = patch.And(models.WithMinRating(minRating))
	}

	return models.FilterSet{}.Merge(patch), nil
}

// splitList accepts both repeated flags and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func filtersFromCommand(cmd *cli.Command) (models.FilterSet, error) {
	return buildFilters(
		cmd.StringSlice("type"),
		cmd.StringSlice("difficulty"),
		cmd.StringSlice("category"),
		cmd.Bool("free"),
		cmd.Bool("paid"),
		cmd.Float("min-rating"),
	)
}

func (r *Runner) pageSize(cmd *cli.Command) int {
	if n := cmd.Int("limit"); n > 0 {
		return n
	}
	if r.config.Search.PageSize > 0 {
		return r.config.Search.PageSize
	}
	return models.DefaultPageSize
}

// Search runs a single search and prints or exports the results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: a search query is required", shared.ErrEmptyQuery)
	}

	filters, err := filtersFromCommand(cmd)
	if err != nil {
		return err
	}

	page := max(cmd.Int("page"), models.DefaultPage)
	q := models.SearchQuery{Text: strings.TrimSpace(text), Filters: filters, Page: page, PageSize: r.pageSize(cmd)}

	r.restore(ctx)
	r.logger.Debug("searching", "query", q.Text, "page", q.Page, "filters", formatter.DescribeFilters(filters))

	result, err := r.search.Search(ctx, q.Request(r.guestSessionID()))
	if err != nil {
		out := search.Classify(err)
		if out.Kind == search.OutcomeSignupRequired {
			r.writePlain("%s\n", out.Message)
			r.writePlain("Run 'lrx auth signup' or 'lrx auth login' to keep searching.\n")
			return out.Err
		}
		return fmt.Errorf("%s: %w", out.Message, err)
	}

	if r.recents != nil {
		if err := r.recents.Record(ctx, q, result); err != nil {
			r.logger.Warn("failed to record recent query", "error", err)
		}
	}

	export := formatter.NewResultsExport(q, result)

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	if out := cmd.String("output"); out != "" || cmd.IsSet("format") {
		f, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		if out != "" || f != formatter.FormatText {
			path, err := formatter.WriteExport(export, f, out)
			if err != nil {
				return err
			}
			return r.writePlain("✓ Exported %d resources to %s\n", len(result.Resources), path)
		}
	}

	data, err := formatter.ExportToText(export)
	if err != nil {
		return err
	}
	r.output.Write(data)

	footer := fmt.Sprintf("Page %d of %d · %d results", result.Page, max(result.Pages(), 1), result.Total)
	if result.RemainingSearches != nil {
		footer += fmt.Sprintf(" · %d searches left", *result.RemainingSearches)
	}
	return r.writePlainln("%s", footer)
}

// SearchHistory lists the server-side search history of the current caller.
func (r *Runner) SearchHistory(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)

	page, err := r.search.History(ctx, max(cmd.Int("page"), 1), cmd.Int("per-page"))
	if err != nil {
		return fmt.Errorf("failed to fetch search history: %w", err)
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(page, true)
	case cmd.Bool("csv"):
		data, err := formatter.HistoryToCSV(page.Searches)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	if len(page.Searches) == 0 {
		return r.writePlain("No searches yet.\n")
	}
	r.writePlainHeader("Search history")
	r.output.Write(formatter.HistoryToText(page.Searches))
	p := page.Pagination
	return r.writePlainln("Page %d of %d · %d searches", p.Page, max(p.Pages, 1), p.Total)
}

// SearchClearHistory deletes the server-side search history.
func (r *Runner) SearchClearHistory(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)
	if err := r.search.ClearHistory(ctx); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return r.writePlain("✓ Search history cleared\n")
}

// SearchFavorites lists favorited searches.
func (r *Runner) SearchFavorites(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)

	entries, err := r.search.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch favorites: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writePlain("No favorite searches.\n")
	}
	_, err = r.output.Write(formatter.HistoryToText(entries))
	return err
}

// SearchFavorite marks or unmarks a history entry as favorite.
func (r *Runner) SearchFavorite(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int("id")
	if id <= 0 {
		return fmt.Errorf("%w: --id must be a positive history id", shared.ErrInvalidFlag)
	}

	r.restore(ctx)
	favorite := !cmd.Bool("unset")
	entry, err := r.search.SetFavorite(ctx, id, favorite)
	if err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}

	if favorite {
		return r.writePlain("★ %q marked as favorite\n", entry.Query)
	}
	return r.writePlain("✓ %q removed from favorites\n", entry.Query)
}

// SearchLimit prints the remaining search quota.
func (r *Runner) SearchLimit(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)

	status, err := r.search.RateLimitStatus(ctx, r.guestSessionID())
	if err != nil {
		return fmt.Errorf("failed to fetch rate limit status: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Remaining searches: %d\n", status.RemainingSearches)
	if !status.CanSearch {
		r.writePlain("Search limit reached. Run 'lrx auth signup' to keep searching.\n")
	}
	return nil
}

// SearchSuggest prints example queries.
func (r *Runner) SearchSuggest(ctx context.Context, cmd *cli.Command) error {
	suggestions, err := r.search.Suggestions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch suggestions: %w", err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(suggestions, false)
	}
	for _, s := range suggestions {
		r.writePlain("• %s\n", s)
	}
	return nil
}

// SearchRecent lists queries recorded locally by earlier searches.
func (r *Runner) SearchRecent(ctx context.Context, cmd *cli.Command) error {
	if r.recents == nil {
		return fmt.Errorf("%w: database not configured, run 'lrx setup database'", shared.ErrMissingConfig)
	}

	if cmd.Bool("clear") {
		n, err := r.recents.Clear()
		if err != nil {
			return err
		}
		return r.writePlain("✓ Removed %d recent queries\n", n)
	}

	queries, err := r.recents.List(map[string]any{"prefix": cmd.String("prefix"), "limit": cmd.Int("limit")})
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return r.writePlain("No recent queries.\n")
	}
	_, err = r.output.Write(formatter.RecentToText(queries))
	return err
}

// readQueries collects batch queries from the arguments and, if set, a file with one query per line.
func readQueries(args []string, path string) ([]string, error) {
	queries := append([]string{}, args...)
	if path == "" {
		return queries, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open query file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return queries, nil
}

// SearchBatch runs many searches with a rate-limited worker pool and optionally exports each result set.
func (r *Runner) SearchBatch(ctx context.Context, cmd *cli.Command) error {
	queries, err := readQueries(cmd.Args().Slice(), cmd.String("file"))
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("%w: pass queries as arguments or with --file", shared.ErrMissingArgument)
	}

	filters, err := filtersFromCommand(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	workers := cmd.Int("workers")
	if workers <= 0 {
		workers = r.config.Search.BatchWorkers
	}
	rateLimit := cmd.Float("rate")
	if rateLimit <= 0 {
		rateLimit = r.config.Search.BatchRateLimit
	}

	r.restore(ctx)

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	result, err := r.engine.Batch(ctx, prog, queries, tasks.BatchOpts{
		Filters:    filters,
		PageSize:   r.pageSize(cmd),
		NumWorkers: workers,
		RateLimit:  rateLimit,
		Format:     format,
		OutputDir:  cmd.String("output-dir"),
	})
	close(prog)
	<-done

	if result == nil {
		return err
	}

	if cmd.Bool("json") {
		if werr := r.writeJSON(result, true); werr != nil {
			return werr
		}
		return err
	}

	r.writePlainHeader("Batch search")
	for _, q := range result.Results {
		line := fmt.Sprintf("%-16s %-32s", q.Status, q.Query)
		if q.Status == tasks.StatusDone {
			line += fmt.Sprintf(" %d results", q.Total())
		} else if q.Message != "" {
			line += " " + q.Message
		}
		r.writePlain("%s\n", line)
	}
	r.writePlainln("%d succeeded · %d failed · %d skipped", result.Succeeded, result.Failed, result.Skipped)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if errors.Is(err, shared.ErrSignupRequired) {
		r.writePlain("Stopped: sign up to keep searching ('lrx auth signup').\n")
	}
	return err
}

// SearchDump fetches history, favorites and quota in one pass.
func (r *Runner) SearchDump(ctx context.Context, cmd *cli.Command) error {
	r.restore(ctx)
	r.writePlain("Fetching account state...\n\n")

	prog := make(chan tasks.ProgressUpdate, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	dump, err := r.engine.Dump(ctx, prog)
	close(prog)
	<-done
	if err != nil {
		return err
	}

	for _, e := range dump.Errors {
		r.logger.Warn("failed to fetch", "endpoint", e.Endpoint, "error", e.Error)
	}
	r.writePlain("\n✓ Dump complete\n\n")

	if path := cmd.String("save"); path != "" {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", path)
			r.writePlain("✓ Dump saved to %s\n\n", path)
		}
	}

	return r.writeJSON(dump, cmd.Bool("pretty"))
}
