package notestore

import (
	"fmt"
	"strings"

	"github.com/starford/journal/internal/models"
)

// AllFolders is the folder selection that places no folder restriction.
const AllFolders = "all"

// TagMatch selects how multiple selected tags combine.
type TagMatch int

const (
	// MatchAny shows a note when at least one selected tag is present.
	MatchAny TagMatch = iota
	// MatchAll shows a note only when every selected tag is present.
	MatchAll
)

// ParseTagMatch converts the configuration spelling ("any", "all") to a TagMatch.
// The empty string yields MatchAny.
func ParseTagMatch(s string) (TagMatch, error) {
	switch s {
	case "", "any":
		return MatchAny, nil
	case "all":
		return MatchAll, nil
	default:
		return MatchAny, fmt.Errorf("notestore: unknown tag match %q", s)
	}
}

// String returns the configuration spelling of m.
func (m TagMatch) String() string {
	if m == MatchAll {
		return "all"
	}
	return "any"
}

// Criteria holds the three filters applied to the note collection.
type Criteria struct {
	Search   string
	FolderID string
	Tags     []string
	TagMatch TagMatch
}

// Match reports whether n passes the search, folder and tag predicates.
func (c Criteria) Match(n models.Note) bool {
	return c.matchSearch(n) && c.matchFolder(n) && c.matchTags(n)
}

func (c Criteria) matchSearch(n models.Note) bool {
	if c.Search == "" {
		return true
	}
	q := strings.ToLower(c.Search)
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

func (c Criteria) matchFolder(n models.Note) bool {
	if c.FolderID == "" || c.FolderID == AllFolders {
		return true
	}
	return n.FolderID == c.FolderID
}

func (c Criteria) matchTags(n models.Note) bool {
	if len(c.Tags) == 0 {
		return true
	}
	if c.TagMatch == MatchAll {
		for _, t := range c.Tags {
			if !n.HasTag(t) {
				return false
			}
		}
		return true
	}
	for _, t := range c.Tags {
		if n.HasTag(t) {
			return true
		}
	}
	return false
}

// Filter returns the notes matching c, preserving their order.
// The result is never nil.
func Filter(notes []models.Note, c Criteria) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if c.Match(n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

// AllTags returns the union of every note's tags in first-seen order.
func AllTags(notes []models.Note) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, n := range notes {
		for _, t := range n.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// NormalizeTags trims whitespace, drops empty tags and removes duplicates,
// keeping the first occurrence. Case is preserved.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
