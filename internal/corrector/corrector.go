// Package corrector repairs answers that failed grounding without any
// additional LLM call: string-level substitution of wrong URLs and
// acronyms, stripping of hallucinated sentences, and a lightweight
// semantic verifier with a verbatim-quote fallback. Every path degrades
// gracefully to returning something rather than failing the request.
package corrector

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/embedding"
	"github.com/mossline/notewise/internal/grounding"
	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/registry"
	"github.com/mossline/notewise/internal/textutil"
)

// Corrector applies local, zero-call repairs.
type Corrector struct {
	log *zap.Logger
}

// New creates a Corrector.
func New(log *zap.Logger) *Corrector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Corrector{log: log}
}

var sentenceRE = regexp.MustCompile(`[^.!?\n]+[.!?\n]?`)

// Repair rewrites the answer using the validation result: unverifiable
// URLs are replaced with the closest URL actually found in the notes (or
// their sentences dropped when none exists), and misremembered acronyms
// are substituted with their registry spelling. The original answer is
// returned untouched when there is nothing actionable.
func (c *Corrector) Repair(answer string, res grounding.Result, reg *registry.Registry) string {
	repaired := answer
	for _, claim := range res.Claims {
		if claim.Verified || claim.Confidence > 0.5 {
			continue
		}
		switch claim.Kind {
		case grounding.ClaimURL:
			if replacement := bestURL(claim.Value, reg); replacement != "" {
				c.log.Debug("replacing unverifiable url",
					zap.String("from", claim.Value), zap.String("to", replacement))
				repaired = strings.ReplaceAll(repaired, claim.Value, replacement)
			} else {
				repaired = dropSentencesContaining(repaired, claim.Value)
			}
		case grounding.ClaimEntity:
			if sub := closestAcronym(claim.Value, reg); sub != "" && sub != claim.Value {
				c.log.Debug("substituting acronym",
					zap.String("from", claim.Value), zap.String("to", sub))
				repaired = strings.ReplaceAll(repaired, claim.Value, sub)
			}
		}
	}
	if strings.TrimSpace(repaired) == "" {
		return answer
	}
	return repaired
}

// bestURL returns the most relevant note URL for an unverifiable claim:
// same host wins, otherwise the most-mentioned URL in the corpus.
func bestURL(claim string, reg *registry.Registry) string {
	claimHost := hostOf(claim)
	var best *registry.Entity
	for _, e := range reg.URLs() {
		if claimHost != "" && hostOf(e.Value) == claimHost {
			return e.Value
		}
		if best == nil || e.Mentions > best.Mentions {
			best = e
		}
	}
	if best == nil {
		return ""
	}
	return best.Value
}

// closestAcronym resolves an acronym confusion to the registry spelling
// within one edit or a shared phonetic code.
func closestAcronym(claim string, reg *registry.Registry) string {
	code := textutil.Soundex(claim)
	for _, e := range reg.Acronyms() {
		if textutil.WithinDistance(strings.ToUpper(e.Value), strings.ToUpper(claim), 1) {
			return e.Value
		}
		if code != "" && code == textutil.Soundex(e.Value) {
			return e.Value
		}
	}
	return ""
}

func dropSentencesContaining(text, needle string) string {
	var b strings.Builder
	for _, sentence := range sentenceRE.FindAllString(text, -1) {
		if strings.Contains(sentence, needle) {
			continue
		}
		b.WriteString(sentence)
	}
	return strings.TrimSpace(b.String())
}

// Report is the semantic verifier's verdict on an answer.
type Report struct {
	// Similarity is the best cosine similarity between the answer
	// embedding and any note embedding.
	Similarity float64
	// Coverage is the fraction of the answer's significant words that
	// appear anywhere in the corpus text.
	Coverage float64
	// LikelyHallucination is set when coverage falls below one half.
	LikelyHallucination bool
	// BestNote is the closest note by embedding similarity, if any.
	BestNote *note.Note
}

// Verify re-embeds the answer and compares it against every note. It makes
// no network calls and never fails; an empty corpus yields a zeroed report.
func Verify(answer string, notes []note.Note) Report {
	report := Report{Similarity: -1}
	answerVec := embedding.Embed(answer)
	for i := range notes {
		if sim := embedding.Cosine(answerVec, notes[i].Embedding); sim > report.Similarity {
			report.Similarity = sim
			report.BestNote = &notes[i]
		}
	}

	words := textutil.SignificantTokens(answer)
	if len(words) > 0 {
		var corpus strings.Builder
		for _, n := range notes {
			corpus.WriteString(strings.ToLower(n.Title))
			corpus.WriteByte('\n')
			corpus.WriteString(strings.ToLower(n.Body))
			corpus.WriteByte('\n')
		}
		corpusText := corpus.String()
		found := 0
		for _, w := range words {
			if strings.Contains(corpusText, w) {
				found++
			}
		}
		report.Coverage = float64(found) / float64(len(words))
		report.LikelyHallucination = report.Coverage < 0.5
	}
	return report
}

// QuoteFallback returns the single best-matching note quoted verbatim, the
// last resort when an answer cannot be repaired into something grounded.
func QuoteFallback(query string, notes []note.Note) string {
	if len(notes) == 0 {
		return "I couldn't find anything in your notes about that."
	}
	queryVec := embedding.Embed(query)
	best := 0
	bestSim := -1.0
	for i := range notes {
		if sim := embedding.Cosine(queryVec, notes[i].Embedding); sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	body := notes[best].Body
	if len(body) > 600 {
		body = body[:600] + "..."
	}
	return fmt.Sprintf("I couldn't verify a confident answer, so here is the closest note verbatim.\n\nFrom %q:\n%s", notes[best].Title, body)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
