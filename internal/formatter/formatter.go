// package formatter renders search results and history as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists every supported [Format].
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat accepts a format name or its usual file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "plain":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Ext returns the file extension used for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// ResultsExport is one query's result set ready for rendering.
type ResultsExport struct {
	Query       string            `json:"query"`
	Filters     models.FilterSet  `json:"filters"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	Resources   []models.Resource `json:"resources"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NewResultsExport captures q and the result returned for it.
func NewResultsExport(q models.SearchQuery, result *models.SearchResult) *ResultsExport {
	export := &ResultsExport{
		Query:       q.Text,
		Filters:     q.Filters.Clone(),
		Page:        q.Page,
		Resources:   []models.Resource{},
		GeneratedAt: time.Now().UTC(),
	}
	if result != nil {
		export.Total = result.Total
		export.Page = result.Page
		export.Resources = result.Resources
	}
	return export
}

// Render dispatches to the exporter for f.
func Render(f Format, export *ResultsExport) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatJSON:
		return shared.MarshalJSON(export, true)
	default:
		return ExportToText(export)
	}
}

var resourceHeaders = []string{"ID", "Name", "Type", "Category", "Pricing", "Difficulty", "Rating", "URL"}

// ExportToCSV writes one row per resource with columns: ID, Name, Type, Category, Pricing, Difficulty, Rating, URL
func ExportToCSV(export *ResultsExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(resourceHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range export.Resources {
		record := []string{
			r.ID.String(),
			r.Name,
			string(r.Type),
			r.Category,
			r.PricingLabel(),
			string(r.DifficultyLevel),
			FormatRating(r.Rating),
			r.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading per query followed by one list item per resource.
func ExportToMarkdown(export *ResultsExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", titleOrAll(export.Query))
	if !export.Filters.IsEmpty() {
		fmt.Fprintf(&buf, "**Filters**: %s\n\n", DescribeFilters(export.Filters))
	}
	fmt.Fprintf(&buf, "**Results**: %d\n\n", export.Total)

	if len(export.Resources) == 0 {
		buf.WriteString("_No resources found._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("## Resources\n\n")
	for i, r := range export.Resources {
		fmt.Fprintf(&buf, "%d. [%s](%s) (%s, %s", i+1, escapeMarkdown(r.Name), r.URL, r.Type.Label(), r.PricingLabel())
		if r.DifficultyLevel != "" {
			fmt.Fprintf(&buf, ", %s", r.DifficultyLevel)
		}
		buf.WriteString(")\n")
		if r.Description != "" {
			fmt.Fprintf(&buf, "   %s\n", escapeMarkdown(r.Description))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders a compact listing suited to a terminal.
func ExportToText(export *ResultsExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Query: %s\n", titleOrAll(export.Query))
	if !export.Filters.IsEmpty() {
		fmt.Fprintf(&buf, "Filters: %s\n", DescribeFilters(export.Filters))
	}
	fmt.Fprintf(&buf, "Results: %d\n\n", export.Total)

	for i, r := range export.Resources {
		fmt.Fprintf(&buf, "%d. %s [%s, %s]\n", i+1, r.Name, r.Type.Label(), r.PricingLabel())
		if r.URL != "" {
			fmt.Fprintf(&buf, "   %s\n", r.URL)
		}
	}

	return buf.Bytes(), nil
}

// HistoryToCSV writes server-side search history with columns: ID, Query, Filters, Results, Favorite, Created
func HistoryToCSV(entries []models.SearchHistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Query", "Filters", "Results", "Favorite", "Created"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.ID),
			e.Query,
			DescribeFilters(e.Filters()),
			strconv.Itoa(e.ResultCount),
			strconv.FormatBool(e.IsFavorite),
			formatTime(e.CreatedAt.Time),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToText renders one line per history entry, marking favorites with a star.
func HistoryToText(entries []models.SearchHistoryEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		star := " "
		if e.IsFavorite {
			star = "★"
		}
		fmt.Fprintf(&buf, "%s %4d  %-32s %4d results  %s", star, e.ID, e.Query, e.ResultCount, formatTime(e.CreatedAt.Time))
		if f := e.Filters(); !f.IsEmpty() {
			fmt.Fprintf(&buf, "  (%s)", DescribeFilters(f))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// RecentToText renders locally recorded queries, newest first.
func RecentToText(queries []*models.RecentQuery) []byte {
	var buf bytes.Buffer
	for _, q := range queries {
		fmt.Fprintf(&buf, "%4d  %-32s %4d results  %s\n", q.Sequence(), q.Query(), q.ResultsCount(), formatTime(q.UpdatedAt()))
	}
	return buf.Bytes()
}

// DescribeFilters renders a filter set as "type=course,tutorial; pricing=free; ...". Empty sets render as "none".
func DescribeFilters(f models.FilterSet) string {
	if f.IsEmpty() {
		return "none"
	}

	var parts []string
	if len(f.Types) > 0 {
		names := make([]string, len(f.Types))
		for i, t := range f.Types {
			names[i] = string(t)
		}
		parts = append(parts, "type="+strings.Join(names, ","))
	}
	if f.IsFree != nil {
		parts = append(parts, "pricing="+f.Pricing().String())
	}
	if len(f.Difficulty) > 0 {
		names := make([]string, len(f.Difficulty))
		for i, d := range f.Difficulty {
			names[i] = string(d)
		}
		parts = append(parts, "difficulty="+strings.Join(names, ","))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, "category="+strings.Join(f.Categories, ","))
	}
	if f.MinRating != nil {
		parts = append(parts, "min_rating="+strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	return strings.Join(parts, "; ")
}

// FormatRating renders a rating with one decimal, or "-" when absent.
func FormatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

// WriteExport renders export as f into path.
//
// Defaults to {query-slug}_results.{ext} when path is empty.
func WriteExport(export *ResultsExport, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_results.%s", Slug(export.Query), f.Ext())
	}

	data, err := Render(f, export)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a query into a file-name friendly token. Blank queries become "all".
func Slug(query string) string {
	s := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(query), "-"), "-")
	if s == "" {
		return "all"
	}
	return s
}

func titleOrAll(query string) string {
	if strings.TrimSpace(query) == "" {
		return "All resources"
	}
	return query
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
