package models

import (
	"fmt"
	"strings"
)

// ResourceType enumerates the kinds of learning resources.
type ResourceType string

const (
	ResourceAITool         ResourceType = "ai_tool"
	ResourceYouTubeChannel ResourceType = "youtube_channel"
	ResourceCourse         ResourceType = "course"
	ResourceWebsite        ResourceType = "website"
	ResourceTutorial       ResourceType = "tutorial"
	ResourceDocumentation  ResourceType = "documentation"
)

// ResourceTypes lists every [ResourceType] in display order.
var ResourceTypes = []ResourceType{
	ResourceAITool, ResourceYouTubeChannel, ResourceCourse, ResourceWebsite, ResourceTutorial, ResourceDocumentation,
}

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	for _, known := range ResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns a human readable name.
func (t ResourceType) Label() string {
	switch t {
	case ResourceAITool:
		return "AI Tools"
	case ResourceYouTubeChannel:
		return "YouTube Channels"
	case ResourceCourse:
		return "Courses"
	case ResourceWebsite:
		return "Websites"
	case ResourceTutorial:
		return "Tutorials"
	case ResourceDocumentation:
		return "Documentation"
	default:
		return string(t)
	}
}

// ParseResourceType parses a resource type, accepting hyphens or underscores in any case.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return t, nil
}

// DifficultyLevel enumerates resource difficulty.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
	DifficultyExpert       DifficultyLevel = "expert"
)

// DifficultyLevels lists every [DifficultyLevel] from easiest to hardest.
var DifficultyLevels = []DifficultyLevel{
	DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert,
}

// Valid reports whether d is a known difficulty level.
func (d DifficultyLevel) Valid() bool {
	for _, known := range DifficultyLevels {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDifficultyLevel parses a difficulty level in any case.
func ParseDifficultyLevel(s string) (DifficultyLevel, error) {
	d := DifficultyLevel(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty level %q", s)
	}
	return d, nil
}

// Resource is an immutable, server-provided learning resource.
type Resource struct {
	ID              ID              `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	URL             string          `json:"url"`
	Type            ResourceType    `json:"type"`
	Category        string          `json:"category"`
	IsFree          bool            `json:"is_free"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	PopularityScore float64         `json:"popularity_score"`
	Tags            []string        `json:"tags"`
	ThumbnailURL    string          `json:"thumbnail_url,omitempty"`
	Rating          *float64        `json:"rating,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// PricingLabel returns "Free" or "Paid".
func (r Resource) PricingLabel() string {
	if r.IsFree {
		return "Free"
	}
	return "Paid"
}
