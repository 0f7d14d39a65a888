// Package chain pulls in "linked context": notes whose titles are
// literally mentioned in the bodies of the top-ranked notes. One pass
// only; links of links are not followed.
package chain

import (
	"strings"

	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/ranker"
)

// minTitleLen guards against pulling in notes whose short titles ("Go",
// "TODO") match incidentally.
const minTitleLen = 3

// Entry is a context candidate with its provenance tier.
type Entry struct {
	Ranked ranker.RankedNote
	// Linked marks tier-2 entries included only because a tier-1 note
	// mentions their title.
	Linked bool
}

// Link returns the tier-1 notes followed by any linked tier-2 notes, at
// most maxLinked of them. A note already in tier 1 is never duplicated.
func Link(tier1 []ranker.RankedNote, corpus []note.Note, maxLinked int) []Entry {
	entries := make([]Entry, 0, len(tier1)+maxLinked)
	included := make(map[string]bool, len(tier1))
	for _, rn := range tier1 {
		entries = append(entries, Entry{Ranked: rn})
		included[rn.Note.ID] = true
	}
	if maxLinked <= 0 {
		return entries
	}

	linked := 0
	for _, rn := range tier1 {
		if linked >= maxLinked {
			break
		}
		body := strings.ToLower(rn.Note.Body)
		for _, candidate := range corpus {
			if linked >= maxLinked {
				break
			}
			if included[candidate.ID] {
				continue
			}
			title := strings.ToLower(strings.TrimSpace(candidate.Title))
			if len(title) < minTitleLen {
				continue
			}
			if !strings.Contains(body, title) {
				continue
			}
			entries = append(entries, Entry{
				Ranked: ranker.RankedNote{Note: candidate},
				Linked: true,
			})
			included[candidate.ID] = true
			linked++
		}
	}
	return entries
}
