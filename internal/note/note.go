// Package note defines the note corpus model consumed by every retrieval
// stage, and a file-backed Source implementation.
//
// Notes are owned by an external persistence collaborator; this package is
// read-only over them. Whenever a note's title, body, or tags change the
// embedding must be regenerated before the note is considered current: a
// stale embedding degrades vector recall silently but never errors.
package note

import (
	"strings"
	"time"
)

// FileTagPrefix marks tags that denote folder membership.
const FileTagPrefix = "folder:"

// Note is a single entry in the user's collection.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Private   bool      `json:"private"`
	UpdatedAt time.Time `json:"updated_at"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// IsFileTag reports whether tag denotes folder membership.
func IsFileTag(tag string) bool {
	return strings.HasPrefix(tag, FileTagPrefix)
}

// TagName strips the folder prefix, returning the tag's display name.
func TagName(tag string) string {
	return strings.TrimPrefix(tag, FileTagPrefix)
}

// Source is the synchronous corpus accessor exposed by the persistence
// collaborator. Implementations return the current snapshot of all notes.
type Source interface {
	Notes() []Note
}

// Snapshot returns the notes visible to a request. Private notes are
// filtered out unless the caller explicitly opts in.
func Snapshot(src Source, includePrivate bool) []Note {
	all := src.Notes()
	if includePrivate {
		return all
	}
	visible := make([]Note, 0, len(all))
	for _, n := range all {
		if !n.Private {
			visible = append(visible, n)
		}
	}
	return visible
}

// KnownTags returns the set of tag names present anywhere in the corpus,
// folder prefixes stripped. The hybrid ranker only boosts tags from this
// set so that query terms cannot invent tags.
func KnownTags(notes []Note) map[string]struct{} {
	known := make(map[string]struct{})
	for _, n := range notes {
		for _, tag := range n.Tags {
			name := strings.ToLower(TagName(tag))
			if name != "" {
				known[name] = struct{}{}
			}
		}
	}
	return known
}
