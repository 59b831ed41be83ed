package ui

import (
	"fmt"

	"github.com/desertthunder/lrx/internal/models"
)

type filterRowKind int

const (
	rowType filterRowKind = iota
	rowPricing
	rowDifficulty
)

// filterRow is one line of the filter panel.
type filterRow struct {
	kind       filterRowKind
	typ        models.ResourceType
	difficulty models.DifficultyLevel
}

func filterRows() []filterRow {
	rows := make([]filterRow, 0, len(models.ResourceTypes)+1+len(models.DifficultyLevels))
	for _, t := range models.ResourceTypes {
		rows = append(rows, filterRow{kind: rowType, typ: t})
	}
	rows = append(rows, filterRow{kind: rowPricing})
	for _, d := range models.DifficultyLevels {
		rows = append(rows, filterRow{kind: rowDifficulty, difficulty: d})
	}
	return rows
}

func (r filterRow) label(f models.FilterSet) string {
	switch r.kind {
	case rowType:
		return fmt.Sprintf("%s %s", checkbox(f.HasType(r.typ)), r.typ.Label())
	case rowPricing:
		return fmt.Sprintf("Pricing: %s", f.Pricing())
	default:
		return fmt.Sprintf("%s %s", checkbox(f.HasDifficulty(r.difficulty)), r.difficulty)
	}
}

// toggle returns the patch that flips this row in f. Pricing cycles any, free, paid.
func (r filterRow) toggle(f models.FilterSet) models.FilterPatch {
	switch r.kind {
	case rowType:
		var types []models.ResourceType
		for _, t := range models.ResourceTypes {
			if (t == r.typ) != f.HasType(t) {
				types = append(types, t)
			}
		}
		return models.WithTypes(types...)
	case rowPricing:
		return models.WithPricing((f.Pricing() + 1) % 3)
	default:
		var levels []models.DifficultyLevel
		for _, d := range models.DifficultyLevels {
			if (d == r.difficulty) != f.HasDifficulty(d) {
				levels = append(levels, d)
			}
		}
		return models.WithDifficulty(levels...)
	}
}

func (r filterRow) section() string {
	switch r.kind {
	case rowType:
		return "Type"
	case rowPricing:
		return "Pricing"
	default:
		return "Difficulty"
	}
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
