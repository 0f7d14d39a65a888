// Package config provides configuration loading for notewise.
//
// Precedence (highest to lowest): NOTEWISE_* environment variables, the
// YAML config file, hardcoded defaults. All ranker weights and pipeline
// thresholds live here: they are tunable configuration, not contract.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mossline/notewise/internal/assemble"
	"github.com/mossline/notewise/internal/ranker"
)

// Config is the root configuration.
type Config struct {
	Notes      NotesConfig      `koanf:"notes"`
	LLM        LLMConfig        `koanf:"llm"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Context    assemble.Options `koanf:"context"`
	Reflection ReflectionConfig `koanf:"reflection"`
	Grounding  GroundingConfig  `koanf:"grounding"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// NotesConfig locates the exported notes file.
type NotesConfig struct {
	Path string `koanf:"path"`
	// IncludePrivate opts the pipeline into notes flagged private.
	IncludePrivate bool `koanf:"include_private"`
	// Watch reloads the notes file on change (serve mode).
	Watch bool `koanf:"watch"`
}

// LLMConfig configures the completion transport.
type LLMConfig struct {
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	Model          string `koanf:"model"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	MaxRetries     int    `koanf:"max_retries"`
}

// Timeout returns the configured transport timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetrievalConfig bounds the retrieval stages.
type RetrievalConfig struct {
	Weights ranker.Weights `koanf:"weights"`
	// PlannerMinQuestionLen gates the planning call for short questions.
	PlannerMinQuestionLen int `koanf:"planner_min_question_len"`
	// HistoryWindow is how many recent turns are forwarded to LLM calls.
	HistoryWindow int `koanf:"history_window"`
	// RerankCandidates is the shortlist size sent to the oracle reranker.
	RerankCandidates int `koanf:"rerank_candidates"`
	// Tier1Size is how many top notes are scanned for linked context.
	Tier1Size int `koanf:"tier1_size"`
	// MaxLinked caps tier-2 linked notes.
	MaxLinked int `koanf:"max_linked"`
}

// ReflectionConfig controls the self-critique loop.
type ReflectionConfig struct {
	// MinQuestionLen gates reflection; short questions skip it.
	MinQuestionLen int `koanf:"min_question_len"`
	// RewriteBelow triggers a rewrite when the self-score (0-100) is lower.
	RewriteBelow int `koanf:"rewrite_below"`
}

// GroundingConfig controls answer validation. Validation is on unless
// explicitly disabled.
type GroundingConfig struct {
	Disabled      bool    `koanf:"disabled"`
	MinConfidence float64 `koanf:"min_confidence"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults fills in missing values.
func applyDefaults(cfg *Config) {
	if cfg.Notes.Path == "" {
		cfg.Notes.Path = "notes.json"
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.LLM.MaxRetries <= 0 {
		cfg.LLM.MaxRetries = 3
	}
	if cfg.Retrieval.Weights == (ranker.Weights{}) {
		cfg.Retrieval.Weights = ranker.DefaultWeights()
	}
	if cfg.Retrieval.PlannerMinQuestionLen <= 0 {
		cfg.Retrieval.PlannerMinQuestionLen = 24
	}
	if cfg.Retrieval.HistoryWindow <= 0 {
		cfg.Retrieval.HistoryWindow = 6
	}
	if cfg.Retrieval.RerankCandidates <= 0 {
		cfg.Retrieval.RerankCandidates = 15
	}
	if cfg.Retrieval.Tier1Size <= 0 {
		cfg.Retrieval.Tier1Size = 10
	}
	if cfg.Retrieval.MaxLinked <= 0 {
		cfg.Retrieval.MaxLinked = 5
	}
	if cfg.Context == (assemble.Options{}) {
		cfg.Context = assemble.DefaultOptions()
	}
	if cfg.Reflection.MinQuestionLen <= 0 {
		cfg.Reflection.MinQuestionLen = 40
	}
	if cfg.Reflection.RewriteBelow <= 0 {
		cfg.Reflection.RewriteBelow = 70
	}
	if cfg.Grounding.MinConfidence <= 0 {
		cfg.Grounding.MinConfidence = 0.6
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8480"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	if c.Reflection.RewriteBelow > 100 {
		return fmt.Errorf("reflection rewrite_below must be <= 100, got %d", c.Reflection.RewriteBelow)
	}
	if c.Grounding.MinConfidence > 1 {
		return fmt.Errorf("grounding min_confidence must be <= 1, got %v", c.Grounding.MinConfidence)
	}
	return nil
}
