// Package planner builds the search-query set for a question: planner
// sub-queries and a hypothetical answer from one LLM call, lexical variants
// from another, both issued concurrently. Every failure in this package is
// advisory — the raw question alone always survives.
package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mossline/notewise/internal/llm"
)

// maxSubQueries caps how many decomposed queries the planner may contribute.
const maxSubQueries = 3

// Plan is the planner's decomposition of a question.
type Plan struct {
	Queries      []string `json:"queries"`
	Hypothetical string   `json:"hypothetical_answer"`
}

// QuerySet is the union of query variants used for ranking. Ephemeral,
// scoped to one request.
type QuerySet struct {
	Raw          string
	SubQueries   []string
	Hypothetical string
	Variants     []string
}

// All returns the deduplicated union in stable order: raw question first,
// then planner sub-queries, the hypothetical answer, and expander variants.
func (qs QuerySet) All() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	add(qs.Raw)
	for _, q := range qs.SubQueries {
		add(q)
	}
	add(qs.Hypothetical)
	for _, v := range qs.Variants {
		add(v)
	}
	return out
}

// Planner issues the plan and expand calls.
type Planner struct {
	client llm.Client
	log    *zap.Logger

	// minQuestionLen gates planning: short questions with no history skip
	// the planner entirely to save a round trip.
	minQuestionLen int
	historyWindow  int
}

// New creates a Planner. minQuestionLen <= 0 selects the default gate.
func New(client llm.Client, log *zap.Logger, minQuestionLen, historyWindow int) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	if minQuestionLen <= 0 {
		minQuestionLen = 24
	}
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Planner{client: client, log: log, minQuestionLen: minQuestionLen, historyWindow: historyWindow}
}

const planPrompt = `You decompose a user's question about their personal notes into search queries.

Return a JSON object:
{"queries": ["1 to 3 short, atomic search queries"], "hypothetical_answer": "one plausible short answer to the question, written as if it came from the notes"}

The hypothetical answer is only used to improve retrieval; it does not need to be factually correct.
Resolve pronouns and references using the conversation when possible.
Respond ONLY with the JSON object.`

const expandPrompt = `You produce lexical variants of a search query over personal notes: fix typos, add synonyms and register changes. Return a JSON object {"variants": ["up to 4 short variants"]}. Respond ONLY with the JSON object.`

// shouldPlan reports whether the question is worth a planning round trip.
func (p *Planner) shouldPlan(question string, history []llm.Message) bool {
	return len(history) > 0 || len(question) >= p.minQuestionLen
}

// Plan asks the LLM to decompose the question. It is fail-silent: on any
// transport or parse error it returns ok=false and contributes nothing.
func (p *Planner) Plan(ctx context.Context, question string, history []llm.Message) (Plan, bool) {
	if !p.shouldPlan(question, history) {
		return Plan{}, false
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: planPrompt}}
	messages = append(messages, recentWindow(history, p.historyWindow)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	text, err := p.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   400,
		JSONOnly:    true,
	})
	if err != nil {
		p.log.Warn("query planning failed, using raw question", zap.Error(err))
		return Plan{}, false
	}

	var plan Plan
	if err := llm.DecodeJSON(text, &plan); err != nil {
		p.log.Warn("query plan unparseable, using raw question", zap.Error(err))
		return Plan{}, false
	}
	if len(plan.Queries) > maxSubQueries {
		plan.Queries = plan.Queries[:maxSubQueries]
	}
	return plan, true
}

// Expand asks the LLM for lexical variants of the question. Fail-silent:
// any error yields no variants.
func (p *Planner) Expand(ctx context.Context, question string) []string {
	text, err := p.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: expandPrompt},
			{Role: llm.RoleUser, Content: question},
		},
		Temperature: 0.4,
		MaxTokens:   200,
		JSONOnly:    true,
	})
	if err != nil {
		p.log.Warn("query expansion failed", zap.Error(err))
		return nil
	}

	var resp struct {
		Variants []string `json:"variants"`
	}
	if err := llm.DecodeJSON(text, &resp); err != nil {
		p.log.Warn("query expansion unparseable", zap.Error(err))
		return nil
	}
	return resp.Variants
}

// BuildQuerySet runs Plan and Expand concurrently and assembles the union.
// Both legs are fail-silent, so the returned set always contains at least
// the raw question.
func (p *Planner) BuildQuerySet(ctx context.Context, question string, history []llm.Message) QuerySet {
	qs := QuerySet{Raw: question}

	var plan Plan
	var planned bool
	var variants []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan, planned = p.Plan(gctx, question, history)
		return nil
	})
	g.Go(func() error {
		variants = p.Expand(gctx, question)
		return nil
	})
	// Both legs swallow their own errors.
	_ = g.Wait()

	if planned {
		qs.SubQueries = plan.Queries
		qs.Hypothetical = plan.Hypothetical
	}
	qs.Variants = variants
	return qs
}

// recentWindow bounds history to the last n turns so prompt size stays
// bounded regardless of conversation length.
func recentWindow(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// FormatHistory renders the bounded recent window as a plain transcript,
// used where a prompt wants history inline rather than as messages.
func FormatHistory(history []llm.Message, n int) string {
	window := recentWindow(history, n)
	var b strings.Builder
	for _, m := range window {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
