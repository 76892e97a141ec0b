package notestore

import (
	"fmt"

	"github.com/starford/journal/internal/models"
)

// DefaultFallbackName is the folder that receives notes of deleted folders
// and new notes created while no folder is selected.
const DefaultFallbackName = "Personal"

// FallbackStrategy decides which folder acts as the fallback.
type FallbackStrategy int

const (
	// FallbackByName picks the first folder whose name equals Fallback.Name.
	FallbackByName FallbackStrategy = iota
	// FallbackFirst picks the first folder in collection order.
	FallbackFirst
)

// ParseFallbackStrategy converts the configuration spelling ("name", "first").
func ParseFallbackStrategy(s string) (FallbackStrategy, error) {
	switch s {
	case "", "name":
		return FallbackByName, nil
	case "first":
		return FallbackFirst, nil
	default:
		return FallbackByName, fmt.Errorf("notestore: unknown fallback strategy %q", s)
	}
}

// Fallback resolves the fallback folder of a collection.
type Fallback struct {
	Strategy FallbackStrategy
	Name     string
}

// DefaultFallback returns the by-name policy targeting "Personal".
func DefaultFallback() Fallback {
	return Fallback{Strategy: FallbackByName, Name: DefaultFallbackName}
}

// Resolve returns the fallback folder among folders, never returning the
// folder with id exclude. ok is false when no folder qualifies.
func (f Fallback) Resolve(folders []models.Folder, exclude string) (folder models.Folder, ok bool) {
	for _, fo := range folders {
		if fo.ID == exclude {
			continue
		}
		if f.Strategy == FallbackFirst || fo.Name == f.Name {
			return fo, true
		}
	}
	return models.Folder{}, false
}
