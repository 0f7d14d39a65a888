// Package ranker scores every note against the union of query variants
// with a weighted blend of vector similarity, lexical term overlap, tag
// affinity, and recency.
//
// The vector weight sits an order of magnitude above the lexical unit
// contributions: the local embedding signal is coarse and would otherwise
// be dwarfed by frequent-term inflation. All weights are configuration,
// not contract.
package ranker

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/embedding"
	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/textutil"
)

// Weights holds the tunable scoring constants.
type Weights struct {
	Vector           float64 `koanf:"vector"`
	TitleTerm        float64 `koanf:"title_term"`
	BodyTerm         float64 `koanf:"body_term"`
	BodyTermCap      int     `koanf:"body_term_cap"`
	TitleStrongBonus float64 `koanf:"title_strong_bonus"`
	TitleAnyBonus    float64 `koanf:"title_any_bonus"`
	ExactPhraseBonus float64 `koanf:"exact_phrase_bonus"`
	TagBoost         float64 `koanf:"tag_boost"`
	RecencyDay       float64 `koanf:"recency_day"`
	RecencyWeek      float64 `koanf:"recency_week"`
	RecencyMonth     float64 `koanf:"recency_month"`
}

// DefaultWeights returns the empirically tuned defaults.
func DefaultWeights() Weights {
	return Weights{
		Vector:           10,
		TitleTerm:        1.5,
		BodyTerm:         0.5,
		BodyTermCap:      3,
		TitleStrongBonus: 6,
		TitleAnyBonus:    2,
		ExactPhraseBonus: 8,
		TagBoost:         4,
		RecencyDay:       3,
		RecencyWeek:      1.5,
		RecencyMonth:     0.5,
	}
}

// Breakdown records the per-component contribution to a composite score.
type Breakdown struct {
	Vector  float64
	Lexical float64
	Tag     float64
	Recency float64
}

// RankedNote pairs a note with its composite score. Ephemeral: produced
// here, consumed by the reranker and chainer, then discarded.
type RankedNote struct {
	Note      note.Note
	Score     float64
	Breakdown Breakdown
}

// Ranker scores and orders a note snapshot.
type Ranker struct {
	weights Weights
	log     *zap.Logger
}

// New creates a Ranker with the given weights. Zero-valued weights fall
// back to the defaults.
func New(weights Weights, log *zap.Logger) *Ranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ranker{weights: weights, log: log}
}

// Rank scores notes against all query variants and returns them sorted by
// descending composite score, ties broken by note ID for determinism.
// Query variants are embedded fresh on every call; only notes carry cached
// embeddings.
func (r *Ranker) Rank(notes []note.Note, variants []string, now time.Time) []RankedNote {
	if len(notes) == 0 || len(variants) == 0 {
		return nil
	}

	queryVecs := make([][]float64, len(variants))
	for i, v := range variants {
		queryVecs[i] = embedding.Embed(v)
	}
	queryTerms := collectTerms(variants)
	knownTags := note.KnownTags(notes)

	ranked := make([]RankedNote, 0, len(notes))
	for _, n := range notes {
		bd := Breakdown{
			Vector:  r.vectorScore(n, queryVecs),
			Lexical: r.lexicalScore(n, variants, queryTerms),
			Tag:     r.tagScore(n, queryTerms, knownTags),
			Recency: r.recencyScore(n.UpdatedAt, now),
		}
		ranked = append(ranked, RankedNote{
			Note:      n,
			Score:     bd.Vector + bd.Lexical + bd.Tag + bd.Recency,
			Breakdown: bd,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Note.ID < ranked[j].Note.ID
	})
	return ranked
}

// vectorScore is the maximum cosine similarity between the note embedding
// and every query-variant embedding. Max rather than average: a note that
// matches any one decomposed sub-query should rank well on multi-part
// questions.
func (r *Ranker) vectorScore(n note.Note, queryVecs [][]float64) float64 {
	best := -1.0
	for _, qv := range queryVecs {
		if sim := embedding.Cosine(n.Embedding, qv); sim > best {
			best = sim
		}
	}
	if best < 0 {
		return 0
	}
	return best * r.weights.Vector
}

func (r *Ranker) lexicalScore(n note.Note, variants, queryTerms []string) float64 {
	titleTokens := textutil.Tokenize(n.Title)
	bodyLower := strings.ToLower(n.Body)
	bodyCounts := countTokens(bodyLower)

	score := 0.0
	titleMatches := 0
	for _, term := range queryTerms {
		// Title match is fuzzy: exact or within one edit.
		for _, tt := range titleTokens {
			if tt == term || textutil.WithinDistance(tt, term, 1) {
				score += r.weights.TitleTerm
				titleMatches++
				break
			}
		}
		// Body occurrences counted, capped per term so runaway repetition
		// does not inflate relevance.
		if c := bodyCounts[term]; c > 0 {
			if c > r.weights.BodyTermCap {
				c = r.weights.BodyTermCap
			}
			score += float64(c) * r.weights.BodyTerm
		}
	}

	// Title-overlap bonuses.
	if len(titleTokens) > 0 {
		overlap := titleOverlap(titleTokens, queryTerms)
		if float64(overlap) >= float64(len(titleTokens))*0.5 {
			score += r.weights.TitleStrongBonus
		} else if overlap >= 1 {
			score += r.weights.TitleAnyBonus
		}
	}

	// Exact-phrase bonus when any full variant appears verbatim in the body.
	for _, v := range variants {
		phrase := strings.ToLower(strings.TrimSpace(v))
		if len(phrase) > 3 && strings.Contains(bodyLower, phrase) {
			score += r.weights.ExactPhraseBonus
			break
		}
	}
	return score
}

// tagScore grants a fixed bonus when any of the note's tags matches a
// query term exactly, pluralized, or within one edit. Only tags known to
// exist somewhere in the corpus are eligible.
func (r *Ranker) tagScore(n note.Note, queryTerms []string, knownTags map[string]struct{}) float64 {
	for _, tag := range n.Tags {
		name := strings.ToLower(note.TagName(tag))
		if _, ok := knownTags[name]; !ok {
			continue
		}
		for _, term := range queryTerms {
			if name == term || name == term+"s" || name+"s" == term ||
				textutil.WithinDistance(name, term, 1) {
				return r.weights.TagBoost
			}
		}
	}
	return 0
}

// recencyScore is a step function of hours since the last update.
func (r *Ranker) recencyScore(updated, now time.Time) float64 {
	age := now.Sub(updated)
	switch {
	case age < 0:
		return r.weights.RecencyDay
	case age <= 24*time.Hour:
		return r.weights.RecencyDay
	case age <= 7*24*time.Hour:
		return r.weights.RecencyWeek
	case age <= 30*24*time.Hour:
		return r.weights.RecencyMonth
	default:
		return 0
	}
}

// collectTerms unions the significant tokens of all variants, order
// preserved, duplicates removed.
func collectTerms(variants []string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, v := range variants {
		for _, t := range textutil.SignificantTokens(v) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}
	return terms
}

func countTokens(textLower string) map[string]int {
	counts := make(map[string]int)
	for _, t := range textutil.Tokenize(textLower) {
		counts[t]++
	}
	return counts
}

func titleOverlap(titleTokens, queryTerms []string) int {
	termSet := make(map[string]struct{}, len(queryTerms))
	for _, t := range queryTerms {
		termSet[t] = struct{}{}
	}
	overlap := 0
	for _, tt := range titleTokens {
		if _, ok := termSet[tt]; ok {
			overlap++
		}
	}
	return overlap
}
