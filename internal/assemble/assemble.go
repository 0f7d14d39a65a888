// Package assemble packs the ordered note list into a bounded text budget
// for the answer prompt. Packing is greedy and deterministic: higher-
// priority entries are kept preferentially when the budget runs out.
package assemble

import (
	"fmt"
	"strings"

	"github.com/mossline/notewise/internal/chain"
	"github.com/mossline/notewise/internal/note"
)

// Options bound the assembled context.
type Options struct {
	// TokenBudget is the approximate token allowance for the context block.
	TokenBudget int `koanf:"token_budget"`
	// CharsPerToken is the fixed estimation ratio.
	CharsPerToken int `koanf:"chars_per_token"`
	// MaxNotes caps the number of included notes regardless of budget.
	MaxNotes int `koanf:"max_notes"`
}

// DefaultOptions returns the standard context bounds.
func DefaultOptions() Options {
	return Options{TokenBudget: 2000, CharsPerToken: 4, MaxNotes: 12}
}

// Context is the packed prompt block.
type Context struct {
	Text      string
	Included  int
	Truncated bool
}

// Build formats entries in order until the budget or note cap is hit. If
// even the first entry exceeds the budget it is truncated to fit and
// marked, so the context never comes back empty when candidates exist.
func Build(entries []chain.Entry, opts Options) Context {
	if opts.TokenBudget <= 0 || opts.CharsPerToken <= 0 || opts.MaxNotes <= 0 {
		opts = DefaultOptions()
	}
	budget := opts.TokenBudget * opts.CharsPerToken

	var b strings.Builder
	included := 0
	truncated := false
	for _, e := range entries {
		if included >= opts.MaxNotes {
			break
		}
		entry := formatEntry(e)
		if b.Len()+len(entry) > budget {
			if included == 0 {
				fit := budget - len(truncationMark)
				if fit < 0 {
					fit = 0
				}
				if fit > len(entry) {
					fit = len(entry)
				}
				b.WriteString(entry[:fit])
				b.WriteString(truncationMark)
				included++
				truncated = true
			}
			break
		}
		b.WriteString(entry)
		included++
	}
	return Context{Text: b.String(), Included: included, Truncated: truncated}
}

const truncationMark = "\n[note truncated to fit context]\n"

func formatEntry(e chain.Entry) string {
	n := e.Ranked.Note
	tier := "Primary"
	if e.Linked {
		tier = "Linked"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- [%s] %s (updated %s) ---\n", tier, n.Title, n.UpdatedAt.Format("2006-01-02 15:04"))
	if len(n.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", annotateTags(n.Tags))
	}
	b.WriteString(n.Body)
	b.WriteString("\n\n")
	return b.String()
}

// annotateTags renders the tag list with folder tags called out, so the
// model can reason about folder membership versus plain labels.
func annotateTags(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if note.IsFileTag(t) {
			parts = append(parts, note.TagName(t)+" (folder)")
		} else {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, ", ")
}
