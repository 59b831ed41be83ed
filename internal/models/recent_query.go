package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/desertthunder/lrx/internal/shared"
)

// RecentQuery is a search the user submitted from this machine.
//
// Recent queries back the shell history of `lrx search` and the TUI suggestions list.
type RecentQuery struct {
	id           string
	sequence     int
	query        string
	normalized   string
	filters      FilterSet
	resultsCount int
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewRecentQuery creates an unsaved [RecentQuery].
func NewRecentQuery(query string, filters FilterSet, resultsCount int) *RecentQuery {
	now := time.Now().UTC()
	return &RecentQuery{
		query:        strings.TrimSpace(query),
		normalized:   shared.NormalizeQuery(query),
		filters:      filters.Clone(),
		resultsCount: resultsCount,
		createdAt:    now,
		updatedAt:    now,
	}
}

// RestoreRecentQuery rebuilds a [RecentQuery] from persisted columns.
func RestoreRecentQuery(id string, sequence int, query, normalized string, filters FilterSet, resultsCount int, createdAt, updatedAt time.Time, deletedAt *time.Time) *RecentQuery {
	return &RecentQuery{
		id:           id,
		sequence:     sequence,
		query:        query,
		normalized:   normalized,
		filters:      filters,
		resultsCount: resultsCount,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
		deletedAt:    deletedAt,
	}
}

func (q *RecentQuery) ID() string            { return q.id }
func (q *RecentQuery) Sequence() int         { return q.sequence }
func (q *RecentQuery) Query() string         { return q.query }
func (q *RecentQuery) Normalized() string    { return q.normalized }
func (q *RecentQuery) Filters() FilterSet    { return q.filters }
func (q *RecentQuery) ResultsCount() int     { return q.resultsCount }
func (q *RecentQuery) CreatedAt() time.Time  { return q.createdAt }
func (q *RecentQuery) UpdatedAt() time.Time  { return q.updatedAt }
func (q *RecentQuery) DeletedAt() *time.Time { return q.deletedAt }

func (q *RecentQuery) SetID(id string)          { q.id = id }
func (q *RecentQuery) SetSequence(seq int)      { q.sequence = seq }
func (q *RecentQuery) SetUpdatedAt(t time.Time) { q.updatedAt = t }
func (q *RecentQuery) SetResultsCount(n int)    { q.resultsCount = n }
func (q *RecentQuery) SetFilters(f FilterSet)   { q.filters = f.Clone() }

// FiltersJSON encodes the filters for storage.
func (q *RecentQuery) FiltersJSON() (string, error) {
	data, err := json.Marshal(q.filters)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Validate checks required fields.
func (q *RecentQuery) Validate() error {
	if q.query == "" {
		return errors.Join(shared.ErrValidation, errors.New("query is required"))
	}
	if q.normalized == "" {
		return errors.Join(shared.ErrValidation, errors.New("normalized query is required"))
	}
	if q.resultsCount < 0 {
		return errors.Join(shared.ErrValidation, errors.New("results count cannot be negative"))
	}
	return nil
}
