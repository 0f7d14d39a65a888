// Package registry mines a typed entity index from the note corpus: URLs,
// acronyms, hashtag tags, proper nouns, and technical terms, each with
// frequency and recency metadata. The grounding validator checks generated
// answers against this index.
//
// A registry is a point-in-time snapshot built by one full corpus scan.
// It is rebuilt once per request and discarded after use, so it can never
// be staler than the note snapshot it was built from.
package registry

import (
	"regexp"
	"strings"
	"time"

	"github.com/mossline/notewise/internal/note"
)

// Kind classifies an extracted entity.
type Kind string

const (
	KindAcronym    Kind = "acronym"
	KindURL        Kind = "url"
	KindProperNoun Kind = "proper-noun"
	KindHashtag    Kind = "hashtag-tag"
	KindTerm       Kind = "technical-term"
)

// Entity is a single indexed value with provenance.
type Entity struct {
	Value     string
	Kind      Kind
	NoteID    string
	NoteTitle string
	LastSeen  time.Time
	Mentions  int
	// Context is a short window of text around the first occurrence.
	Context string
}

// Registry indexes entities three ways: by normalized value, the
// acronym-only subset, and a URL map keyed by the literal URL.
type Registry struct {
	byValue  map[string]*Entity
	acronyms []*Entity
	urls     map[string]*Entity
}

var (
	urlRE     = regexp.MustCompile(`https?://[^\s)>\]"']+`)
	acronymRE = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,5}\b`)
	hashtagRE = regexp.MustCompile(`#[A-Za-z][\w-]*`)
	// Proper nouns: runs of two or more capitalized words, or a single
	// capitalized word that is clearly mid-sentence (crude but cheap).
	properRE = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b|(?:[a-z,;]\s+)([A-Z][a-z]{2,})\b`)
	// Technical terms: camelCase identifiers and snake_case tokens.
	termRE = regexp.MustCompile(`\b[a-z]+[A-Z]\w+\b|\b[a-z0-9]+_[a-z0-9_]+\b`)
)

const contextWindow = 60

// Build scans all notes once and returns the populated registry.
func Build(notes []note.Note) *Registry {
	r := &Registry{
		byValue: make(map[string]*Entity),
		urls:    make(map[string]*Entity),
	}
	for _, n := range notes {
		text := n.Title + "\n" + n.Body
		r.collect(n, text, KindURL, urlRE.FindAllStringIndex(text, -1))
		r.collect(n, text, KindAcronym, acronymRE.FindAllStringIndex(text, -1))
		r.collect(n, text, KindHashtag, hashtagRE.FindAllStringIndex(text, -1))
		r.collectProper(n, text)
		r.collect(n, text, KindTerm, termRE.FindAllStringIndex(text, -1))
		for _, tag := range n.Tags {
			r.add(n, note.TagName(tag), KindHashtag, "tag: "+tag)
		}
	}
	return r
}

func (r *Registry) collect(n note.Note, text string, kind Kind, spans [][]int) {
	for _, span := range spans {
		value := text[span[0]:span[1]]
		r.add(n, value, kind, window(text, span[0], span[1]))
	}
}

func (r *Registry) collectProper(n note.Note, text string) {
	for _, m := range properRE.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		// Submatch 1 is the single-word mid-sentence form.
		if len(m) > 3 && m[2] >= 0 {
			start, end = m[2], m[3]
		}
		r.add(n, text[start:end], KindProperNoun, window(text, start, end))
	}
}

func (r *Registry) add(n note.Note, value string, kind Kind, context string) {
	value = strings.TrimSpace(strings.Trim(value, ".,;:"))
	if value == "" {
		return
	}
	key := Normalize(value)
	if e, ok := r.byValue[key]; ok {
		e.Mentions++
		if n.UpdatedAt.After(e.LastSeen) {
			e.LastSeen = n.UpdatedAt
		}
		return
	}
	e := &Entity{
		Value:     value,
		Kind:      kind,
		NoteID:    n.ID,
		NoteTitle: n.Title,
		LastSeen:  n.UpdatedAt,
		Mentions:  1,
		Context:   context,
	}
	r.byValue[key] = e
	switch kind {
	case KindAcronym:
		r.acronyms = append(r.acronyms, e)
	case KindURL:
		r.urls[value] = e
	}
}

// Normalize lowercases and trims a value for index lookup.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Lookup returns the entity for a value, if indexed.
func (r *Registry) Lookup(value string) (*Entity, bool) {
	e, ok := r.byValue[Normalize(value)]
	return e, ok
}

// LookupURL returns the entity for a literal URL.
func (r *Registry) LookupURL(url string) (*Entity, bool) {
	if e, ok := r.urls[url]; ok {
		return e, true
	}
	e, ok := r.urls[strings.TrimRight(url, "/")]
	return e, ok
}

// URLs returns all indexed URL entities.
func (r *Registry) URLs() []*Entity {
	out := make([]*Entity, 0, len(r.urls))
	for _, e := range r.urls {
		out = append(out, e)
	}
	return out
}

// Acronyms returns the acronym-only subset.
func (r *Registry) Acronyms() []*Entity {
	return r.acronyms
}

// All returns every indexed entity.
func (r *Registry) All() []*Entity {
	out := make([]*Entity, 0, len(r.byValue))
	for _, e := range r.byValue {
		out = append(out, e)
	}
	return out
}

// Len returns the number of distinct indexed entities.
func (r *Registry) Len() int {
	return len(r.byValue)
}

func window(text string, start, end int) string {
	from := start - contextWindow
	if from < 0 {
		from = 0
	}
	to := end + contextWindow
	if to > len(text) {
		to = len(text)
	}
	return strings.Join(strings.Fields(text[from:to]), " ")
}
