package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SearchQueries Phase = iota
	ExportResults
	WriteManifest
	FetchHistory
	FetchFavorites
	FetchRateLimit
)

func (p Phase) String() string {
	switch p {
	case SearchQueries:
		return "search_queries"
	case ExportResults:
		return "export_results"
	case WriteManifest:
		return "write_manifest"
	case FetchHistory:
		return "fetch_history"
	case FetchFavorites:
		return "fetch_favorites"
	case FetchRateLimit:
		return "fetch_rate_limit"
	default:
		return ""
	}
}

func startBatchUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchQueries,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Searching %d queries...", total),
	}
}

func queryCompletedUpdate(step, total int, res QueryResult) ProgressUpdate {
	var msg string
	switch res.Status {
	case StatusDone:
		msg = fmt.Sprintf("[%d/%d] ✓ %s (%d results)", step, total, res.Query, res.Total())
	case StatusSkipped:
		msg = fmt.Sprintf("[%d/%d] - %s skipped", step, total, displayQuery(res.Query))
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, displayQuery(res.Query), res.Message)
	}
	return ProgressUpdate{
		Phase:   SearchQueries,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func signupStopUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchQueries,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Stopping batch: %s", message),
	}
}

func exportFailedUpdate(step, total int, query string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportResults,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ export %s: %v", step, total, displayQuery(query), err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}

func historyPageUpdate(page, pages int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("Fetching history page %d...", page),
	}
}

func operationUpdate(op dumpOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: op.message,
	}
}

func displayQuery(q string) string {
	if q == "" {
		return "(blank)"
	}
	return q
}
