package models

import (
	"fmt"
	"slices"
	"strings"
)

// Pricing is the user-facing pricing constraint. It maps onto the wire field is_free.
type Pricing int

const (
	PricingAny Pricing = iota
	PricingFree
	PricingPaid
)

func (p Pricing) String() string {
	switch p {
	case PricingFree:
		return "free"
	case PricingPaid:
		return "paid"
	default:
		return "any"
	}
}

// ParsePricing parses "any", "free" or "paid".
func ParsePricing(s string) (Pricing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return PricingAny, nil
	case "free":
		return PricingFree, nil
	case "paid":
		return PricingPaid, nil
	default:
		return PricingAny, fmt.Errorf("unknown pricing %q", s)
	}
}

// FilterSet holds independently optional search constraints.
//
// A nil field means no constraint on that dimension.
type FilterSet struct {
	Types      []ResourceType    `json:"type,omitempty"`
	IsFree     *bool             `json:"is_free,omitempty"`
	Difficulty []DifficultyLevel `json:"difficulty_level,omitempty"`
	Categories []string          `json:"category,omitempty"`
	MinRating  *float64          `json:"min_rating,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f FilterSet) IsEmpty() bool {
	return len(f.Types) == 0 && f.IsFree == nil && len(f.Difficulty) == 0 && len(f.Categories) == 0 && f.MinRating == nil
}

// Pricing returns the pricing constraint encoded by IsFree.
func (f FilterSet) Pricing() Pricing {
	switch {
	case f.IsFree == nil:
		return PricingAny
	case *f.IsFree:
		return PricingFree
	default:
		return PricingPaid
	}
}

// HasType reports whether t is part of the type constraint.
func (f FilterSet) HasType(t ResourceType) bool {
	return slices.Contains(f.Types, t)
}

// HasDifficulty reports whether d is part of the difficulty constraint.
func (f FilterSet) HasDifficulty(d DifficultyLevel) bool {
	return slices.Contains(f.Difficulty, d)
}

// Clone returns a deep copy.
func (f FilterSet) Clone() FilterSet {
	out := FilterSet{
		Types:      slices.Clone(f.Types),
		Difficulty: slices.Clone(f.Difficulty),
		Categories: slices.Clone(f.Categories),
	}
	if f.IsFree != nil {
		v := *f.IsFree
		out.IsFree = &v
	}
	if f.MinRating != nil {
		v := *f.MinRating
		out.MinRating = &v
	}
	return out
}

// Equal reports whether two filter sets express the same constraints.
func (f FilterSet) Equal(o FilterSet) bool {
	return slices.Equal(f.Types, o.Types) &&
		slices.Equal(f.Difficulty, o.Difficulty) &&
		slices.Equal(f.Categories, o.Categories) &&
		f.Pricing() == o.Pricing() &&
		((f.MinRating == nil && o.MinRating == nil) ||
			(f.MinRating != nil && o.MinRating != nil && *f.MinRating == *o.MinRating))
}

// Merge applies p field by field and returns the result; f is not modified.
//
// A field present in p replaces the current value wholesale (last write wins).
func (f FilterSet) Merge(p FilterPatch) FilterSet {
	out := f.Clone()
	if p.Types != nil {
		out.Types = nilIfEmpty(slices.Clone(*p.Types))
	}
	if p.Pricing != nil {
		switch *p.Pricing {
		case PricingFree:
			v := true
			out.IsFree = &v
		case PricingPaid:
			v := false
			out.IsFree = &v
		default:
			out.IsFree = nil
		}
	}
	if p.Difficulty != nil {
		out.Difficulty = nilIfEmpty(slices.Clone(*p.Difficulty))
	}
	if p.Categories != nil {
		out.Categories = nilIfEmpty(slices.Clone(*p.Categories))
	}
	if p.MinRating != nil {
		if *p.MinRating > 0 {
			v := *p.MinRating
			out.MinRating = &v
		} else {
			out.MinRating = nil
		}
	}
	return out
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// FilterPatch is a partial [FilterSet] update. Nil fields are left untouched;
// a present empty slice, [PricingAny] or a non-positive rating clears that constraint.
type FilterPatch struct {
	Types      *[]ResourceType
	Pricing    *Pricing
	Difficulty *[]DifficultyLevel
	Categories *[]string
	MinRating  *float64
}

// WithTypes returns a patch replacing the type constraint.
func WithTypes(types ...ResourceType) FilterPatch {
	return FilterPatch{Types: &types}
}

// WithPricing returns a patch replacing the pricing constraint.
func WithPricing(p Pricing) FilterPatch {
	return FilterPatch{Pricing: &p}
}

// WithFree returns a patch setting is_free.
func WithFree(free bool) FilterPatch {
	if free {
		return WithPricing(PricingFree)
	}
	return WithPricing(PricingPaid)
}

// WithDifficulty returns a patch replacing the difficulty constraint.
func WithDifficulty(levels ...DifficultyLevel) FilterPatch {
	return FilterPatch{Difficulty: &levels}
}

// WithCategories returns a patch replacing the category constraint.
func WithCategories(categories ...string) FilterPatch {
	return FilterPatch{Categories: &categories}
}

// WithMinRating returns a patch replacing the minimum rating.
func WithMinRating(r float64) FilterPatch {
	return FilterPatch{MinRating: &r}
}

// And combines two patches; fields present in o win.
func (p FilterPatch) And(o FilterPatch) FilterPatch {
	if o.Types != nil {
		p.Types = o.Types
	}
	if o.Pricing != nil {
		p.Pricing = o.Pricing
	}
	if o.Difficulty != nil {
		p.Difficulty = o.Difficulty
	}
	if o.Categories != nil {
		p.Categories = o.Categories
	}
	if o.MinRating != nil {
		p.MinRating = o.MinRating
	}
	return p
}
