package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/models"
)

var _ list.Item = resourceItem{}

// resourceItem wraps [models.Resource] to implement [list.Item].
type resourceItem struct {
	resource models.Resource
}

func (i resourceItem) FilterValue() string { return i.resource.Name }
func (i resourceItem) Title() string       { return i.resource.Name }
func (i resourceItem) Description() string {
	parts := []string{i.resource.Type.Label(), i.resource.PricingLabel()}
	if i.resource.DifficultyLevel != "" {
		parts = append(parts, string(i.resource.DifficultyLevel))
	}
	if i.resource.Rating != nil {
		parts = append(parts, fmt.Sprintf("★ %s", formatter.FormatRating(i.resource.Rating)))
	}
	desc := strings.Join(parts, " • ")
	if i.resource.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.resource.Description)
	}
	return desc
}

func resourceItems(result *models.SearchResult) []list.Item {
	if result == nil {
		return []list.Item{}
	}
	items := make([]list.Item, len(result.Resources))
	for i, r := range result.Resources {
		items[i] = resourceItem{resource: r}
	}
	return items
}
