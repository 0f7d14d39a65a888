// Package reranker sends the top ranked candidates to an LLM that selects
// the genuinely relevant subset, correcting for titles that mislead the
// lexical and vector scorers. It fails open: any error returns the input
// ordering unchanged.
package reranker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/llm"
	"github.com/mossline/notewise/internal/ranker"
)

// Defaults for candidate and snippet sizing.
const (
	DefaultMaxCandidates = 15
	defaultSnippetLen    = 200
)

// Reranker is the oracle relevance judge over an already-ranked shortlist.
type Reranker struct {
	client        llm.Client
	log           *zap.Logger
	maxCandidates int
	snippetLen    int
}

// New creates a Reranker. maxCandidates <= 0 selects the default of 15.
func New(client llm.Client, log *zap.Logger, maxCandidates int) *Reranker {
	if log == nil {
		log = zap.NewNop()
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &Reranker{
		client:        client,
		log:           log,
		maxCandidates: maxCandidates,
		snippetLen:    defaultSnippetLen,
	}
}

const rerankPrompt = `You judge which notes are genuinely relevant to a question.
You see each note's title and a snippet of its body. Titles can be misleading; trust the snippet over the title.
Return a JSON object {"relevant": [numbers of the relevant notes, most relevant first]}.
If none are relevant, return {"relevant": []}. Respond ONLY with the JSON object.`

// Rerank promotes the oracle-selected subset of the top candidates to the
// front of the list. Notes the oracle does not select are not discarded:
// they follow the promoted subset in their original relative order, as do
// notes beyond the candidate window. On any failure the input is returned
// unchanged.
func (r *Reranker) Rerank(ctx context.Context, question string, rankedNotes []ranker.RankedNote) []ranker.RankedNote {
	limit := r.maxCandidates
	if limit > len(rankedNotes) {
		limit = len(rankedNotes)
	}
	if limit == 0 {
		return rankedNotes
	}
	candidates := rankedNotes[:limit]

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nNotes:\n", question)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. Title: %s\n   Snippet: %s\n", i+1, c.Note.Title, snippet(c.Note.Body, r.snippetLen))
	}

	text, err := r.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: rerankPrompt},
			{Role: llm.RoleUser, Content: b.String()},
		},
		Temperature: 0,
		MaxTokens:   200,
		JSONOnly:    true,
	})
	if err != nil {
		r.log.Warn("rerank failed, keeping original order", zap.Error(err))
		return rankedNotes
	}

	var resp struct {
		Relevant []int `json:"relevant"`
	}
	if err := llm.DecodeJSON(text, &resp); err != nil {
		r.log.Warn("rerank response unparseable, keeping original order", zap.Error(err))
		return rankedNotes
	}

	promoted := make([]ranker.RankedNote, 0, len(rankedNotes))
	taken := make(map[int]bool, len(resp.Relevant))
	for _, idx := range resp.Relevant {
		i := idx - 1 // prompt is 1-based
		if i < 0 || i >= limit || taken[i] {
			continue
		}
		taken[i] = true
		promoted = append(promoted, candidates[i])
	}
	if len(promoted) == 0 {
		// An oracle that rejects everything is more likely confused than
		// right; keep the ranker's ordering.
		return rankedNotes
	}
	for i, c := range candidates {
		if !taken[i] {
			promoted = append(promoted, c)
		}
	}
	promoted = append(promoted, rankedNotes[limit:]...)
	return promoted
}

func snippet(body string, n int) string {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) <= n {
		return body
	}
	return body[:n] + "..."
}
