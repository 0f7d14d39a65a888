// Package engine orchestrates the full ask pipeline: personalized
// short-circuit, concurrent query planning and expansion, hybrid ranking,
// oracle reranking, context chaining and assembly, answer generation, the
// reflection loop, and grounding validation with local correction.
//
// The pipeline is single-threaded per request apart from the planner and
// expander, which run concurrently to hide their latency behind each
// other. Requests share nothing mutable: the note snapshot and entity
// registry are taken fresh per call.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mossline/notewise/internal/assemble"
	"github.com/mossline/notewise/internal/chain"
	"github.com/mossline/notewise/internal/config"
	"github.com/mossline/notewise/internal/corrector"
	"github.com/mossline/notewise/internal/grounding"
	"github.com/mossline/notewise/internal/llm"
	"github.com/mossline/notewise/internal/metrics"
	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/planner"
	"github.com/mossline/notewise/internal/ranker"
	"github.com/mossline/notewise/internal/registry"
	"github.com/mossline/notewise/internal/reranker"
	"github.com/mossline/notewise/internal/smalltalk"
)

// Engine answers questions grounded in a note corpus.
type Engine struct {
	source  note.Source
	client  llm.Client
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics

	planner   *planner.Planner
	ranker    *ranker.Ranker
	reranker  *reranker.Reranker
	validator *grounding.Validator
	corrector *corrector.Corrector

	// now is swappable for deterministic tests.
	now func() time.Time
}

// New wires the pipeline. cfg must be non-nil and validated; m may be nil
// for callers that do not scrape metrics.
func New(source note.Source, client llm.Client, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Engine{
		source:    source,
		client:    client,
		cfg:       cfg,
		log:       log,
		metrics:   m,
		planner:   planner.New(client, log, cfg.Retrieval.PlannerMinQuestionLen, cfg.Retrieval.HistoryWindow),
		ranker:    ranker.New(cfg.Retrieval.Weights, log),
		reranker:  reranker.New(client, log, cfg.Retrieval.RerankCandidates),
		validator: grounding.New(cfg.Grounding.MinConfidence, log),
		corrector: corrector.New(log),
		now:       time.Now,
	}
}

// Ask answers a question against the current note snapshot. History is the
// ordered list of prior turns; only a bounded recent window reaches any
// LLM call. Ask always returns an answer string: advisory-stage failures
// fall back silently, generation failure yields a plain error message, and
// grounding failures downgrade the answer rather than blocking it.
func (e *Engine) Ask(ctx context.Context, question string, history []llm.Message) string {
	start := e.now()
	defer func() {
		e.metrics.AskDuration.Observe(e.now().Sub(start).Seconds())
	}()
	e.metrics.Questions.Inc()

	log := e.log.With(zap.String("request_id", uuid.NewString()))
	question = strings.TrimSpace(question)
	if question == "" {
		return "Ask me anything about your notes."
	}

	// Hard short-circuit for conversational questions: no corpus access,
	// no network calls.
	if reply, kind, ok := smalltalk.Match(question); ok {
		e.metrics.SmalltalkHits.Inc()
		log.Debug("smalltalk short-circuit", zap.Stringer("kind", kind))
		return reply
	}

	snapshot := note.Snapshot(e.source, e.cfg.Notes.IncludePrivate)
	log.Debug("snapshot taken", zap.Int("notes", len(snapshot)))

	qs := e.planner.BuildQuerySet(ctx, question, history)
	e.recordLLMOutcome("plan", len(qs.SubQueries) > 0)
	e.recordLLMOutcome("expand", len(qs.Variants) > 0)

	// Query rewriting can reveal an intent the raw question obscured
	// ("who is he?" -> "who is Alex?"), so re-check the first sub-query.
	if len(qs.SubQueries) > 0 {
		if reply, kind, ok := smalltalk.Match(qs.SubQueries[0]); ok {
			e.metrics.SmalltalkHits.Inc()
			log.Debug("smalltalk short-circuit on sub-query", zap.Stringer("kind", kind))
			return reply
		}
	}

	variants := qs.All()
	ranked := e.ranker.Rank(snapshot, variants, e.now())
	ranked = e.reranker.Rerank(ctx, question, ranked)

	tier1 := ranked
	if len(tier1) > e.cfg.Retrieval.Tier1Size {
		tier1 = tier1[:e.cfg.Retrieval.Tier1Size]
	}
	entries := chain.Link(tier1, snapshot, e.cfg.Retrieval.MaxLinked)
	assembled := assemble.Build(entries, e.cfg.Context)
	log.Debug("context assembled",
		zap.Int("entries", assembled.Included),
		zap.Bool("truncated", assembled.Truncated))

	answer, err := e.generate(ctx, question, variants, assembled.Text, history)
	if err != nil {
		// The one load-bearing call: without it there is no content to
		// substitute, so surface a plain error string.
		e.recordLLMOutcome("generate", false)
		log.Error("answer generation failed", zap.Error(err))
		return generationFailedMessage
	}
	e.recordLLMOutcome("generate", true)

	answer = e.reflect(ctx, question, assembled.Text, answer, log)

	if !e.cfg.Grounding.Disabled {
		answer = e.ground(question, answer, snapshot, history, log)
	}
	return answer
}

// Source returns the note source the engine reads from.
func (e *Engine) Source() note.Source {
	return e.source
}

// generate issues the primary answer call.
func (e *Engine) generate(ctx context.Context, question string, variants []string, contextText string, history []llm.Message) (string, error) {
	var user strings.Builder
	if contextText != "" {
		user.WriteString("Relevant notes:\n\n")
		user.WriteString(contextText)
		user.WriteString("\n")
	} else {
		user.WriteString("No relevant notes were found.\n\n")
	}
	fmt.Fprintf(&user, "Question: %s\n", question)
	if len(variants) > 1 {
		fmt.Fprintf(&user, "(Interpreted as: %s)\n", strings.Join(variants[1:], "; "))
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: answerSystemPrompt(e.now())}}
	messages = append(messages, recentWindow(history, e.cfg.Retrieval.HistoryWindow)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: user.String()})

	return e.client.Complete(ctx, llm.Request{
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1024,
	})
}

// reflect runs the best-effort critique/rewrite loop for long questions.
// Any failure returns the original answer unchanged.
func (e *Engine) reflect(ctx context.Context, question, contextText, answer string, log *zap.Logger) string {
	if len(question) < e.cfg.Reflection.MinQuestionLen {
		return answer
	}

	critiqueUser := fmt.Sprintf("Question: %s\n\nNotes context:\n%s\n\nAnswer to grade:\n%s", question, contextText, answer)
	text, err := e.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: critiquePrompt},
			{Role: llm.RoleUser, Content: critiqueUser},
		},
		Temperature: 0,
		MaxTokens:   150,
		JSONOnly:    true,
	})
	if err != nil {
		e.recordLLMOutcome("reflect", false)
		log.Warn("reflection critique failed, keeping answer", zap.Error(err))
		return answer
	}

	var critique struct {
		Score    int    `json:"score"`
		Critique string `json:"critique"`
	}
	if err := llm.DecodeJSON(text, &critique); err != nil {
		e.recordLLMOutcome("reflect", false)
		log.Warn("reflection critique unparseable, keeping answer", zap.Error(err))
		return answer
	}
	e.recordLLMOutcome("reflect", true)
	log.Debug("answer scored", zap.Int("score", critique.Score), zap.String("critique", critique.Critique))

	if critique.Score >= e.cfg.Reflection.RewriteBelow {
		return answer
	}

	rewriteUser := fmt.Sprintf("Question: %s\n\nNotes context:\n%s\n\nOriginal answer:\n%s\n\nCritique: %s",
		question, contextText, answer, critique.Critique)
	rewritten, err := e.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: rewritePrompt},
			{Role: llm.RoleUser, Content: rewriteUser},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil || strings.TrimSpace(rewritten) == "" {
		e.recordLLMOutcome("rewrite", false)
		log.Warn("rewrite failed, keeping original answer", zap.Error(err))
		return answer
	}
	e.recordLLMOutcome("rewrite", true)
	return rewritten
}

// ground validates the answer against a fresh entity registry and repairs
// it locally when validation fails. It never blocks output.
func (e *Engine) ground(question, answer string, snapshot []note.Note, history []llm.Message, log *zap.Logger) string {
	reg := registry.Build(snapshot)
	hints := recentUserTurns(history, e.cfg.Retrieval.HistoryWindow)
	result := e.validator.Validate(answer, reg, append(hints, question))
	if result.Valid {
		return answer
	}
	e.metrics.GroundingFailures.Inc()
	log.Info("answer failed grounding, applying local correction",
		zap.Float64("confidence", result.Confidence),
		zap.Int("issues", len(result.Issues)))

	repaired := e.corrector.Repair(answer, result, reg)
	if repaired != answer {
		e.metrics.AnswersCorrected.Inc()
	}

	report := corrector.Verify(repaired, snapshot)
	if report.LikelyHallucination {
		e.metrics.AnswersCorrected.Inc()
		log.Info("repaired answer still ungrounded, quoting best note",
			zap.Float64("coverage", report.Coverage))
		return corrector.QuoteFallback(question, snapshot)
	}
	return repaired
}

func (e *Engine) recordLLMOutcome(stage string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "fallback"
	}
	e.metrics.LLMCalls.WithLabelValues(stage, outcome).Inc()
}

func recentWindow(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func recentUserTurns(history []llm.Message, n int) []string {
	window := recentWindow(history, n)
	var out []string
	for _, m := range window {
		if m.Role == llm.RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}
