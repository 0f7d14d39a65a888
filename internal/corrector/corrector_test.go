package corrector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/notewise/internal/embedding"
	"github.com/mossline/notewise/internal/grounding"
	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/registry"
)

func embedded(n note.Note) note.Note {
	n.Embedding = embedding.Embed(n.Title + "\n" + n.Body)
	return n
}

func TestRepairReplacesURLWithSameHost(t *testing.T) {
	reg := registry.Build([]note.Note{
		{ID: "1", Title: "Dashboards", Body: "main board at https://grafana.internal/d/main"},
	})
	c := New(nil)

	answer := "The board is at https://grafana.internal/d/wrong-path today."
	res := grounding.Result{Claims: []grounding.Claim{
		{Kind: grounding.ClaimURL, Value: "https://grafana.internal/d/wrong-path", Confidence: 0.5},
	}}

	repaired := c.Repair(answer, res, reg)
	assert.Contains(t, repaired, "https://grafana.internal/d/main")
	assert.NotContains(t, repaired, "wrong-path")
}

func TestRepairDropsSentenceWhenNoURLExists(t *testing.T) {
	reg := registry.Build([]note.Note{{ID: "1", Title: "n", Body: "no urls here"}})
	c := New(nil)

	answer := "Your notes mention the deadline. See https://invented.example.com/x for more. The deadline is Friday."
	res := grounding.Result{Claims: []grounding.Claim{
		{Kind: grounding.ClaimURL, Value: "https://invented.example.com/x", Confidence: 0},
	}}

	repaired := c.Repair(answer, res, reg)
	assert.NotContains(t, repaired, "invented.example.com")
	assert.Contains(t, repaired, "deadline is Friday")
}

func TestRepairSubstitutesAcronym(t *testing.T) {
	reg := registry.Build([]note.Note{{ID: "1", Title: "Ops", Body: "escalate via the SRE channel"}})
	c := New(nil)

	answer := "Raise it in the SER channel."
	res := grounding.Result{Claims: []grounding.Claim{
		{Kind: grounding.ClaimEntity, Value: "SER", Confidence: 0},
	}}

	repaired := c.Repair(answer, res, reg)
	assert.Contains(t, repaired, "SRE")
	assert.NotContains(t, repaired, "SER ")
}

func TestRepairLeavesVerifiedClaimsAlone(t *testing.T) {
	reg := registry.Build(nil)
	c := New(nil)

	answer := "Everything here is fine."
	res := grounding.Result{Claims: []grounding.Claim{
		{Kind: grounding.ClaimEntity, Value: "fine", Verified: true, Confidence: 1.0},
		{Kind: grounding.ClaimEntity, Value: "here", Confidence: 0.8},
	}}
	assert.Equal(t, answer, c.Repair(answer, res, reg))
}

func TestRepairNeverReturnsEmpty(t *testing.T) {
	reg := registry.Build(nil)
	c := New(nil)

	answer := "See https://only-sentence.example.com/x."
	res := grounding.Result{Claims: []grounding.Claim{
		{Kind: grounding.ClaimURL, Value: "https://only-sentence.example.com/x", Confidence: 0},
	}}
	// Dropping the only sentence would empty the answer; the original wins.
	assert.Equal(t, answer, c.Repair(answer, res, reg))
}

func TestVerifyCoverage(t *testing.T) {
	notes := []note.Note{
		embedded(note.Note{ID: "1", Title: "Cabin", Body: "the wifi password is hunter2 in the rental binder"}),
	}

	grounded := Verify("The wifi password is hunter2, from the rental binder.", notes)
	assert.False(t, grounded.LikelyHallucination)
	assert.Equal(t, 1.0, grounded.Coverage)
	require.NotNil(t, grounded.BestNote)
	assert.Equal(t, "1", grounded.BestNote.ID)

	invented := Verify("Your submarine reservation includes complimentary zeppelin parking.", notes)
	assert.True(t, invented.LikelyHallucination)
	assert.Less(t, invented.Coverage, 0.5)
}

func TestVerifyEmptyCorpus(t *testing.T) {
	report := Verify("anything", nil)
	assert.Equal(t, -1.0, report.Similarity)
	assert.Nil(t, report.BestNote)
	assert.True(t, report.LikelyHallucination)
}

func TestQuoteFallback(t *testing.T) {
	notes := []note.Note{
		embedded(note.Note{ID: "1", Title: "Gardening", Body: "tomato compost schedule"}),
		embedded(note.Note{ID: "2", Title: "Cabin wifi", Body: "password hunter2 on the router sticker"}),
	}

	got := QuoteFallback("what is the cabin wifi password", notes)
	assert.Contains(t, got, `"Cabin wifi"`)
	assert.Contains(t, got, "hunter2")
}

func TestQuoteFallbackTruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("relevant words about the cabin wifi password ", 40)
	notes := []note.Note{embedded(note.Note{ID: "1", Title: "Cabin", Body: long})}

	got := QuoteFallback("cabin wifi password", notes)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Less(t, len(got), len(long))
}

func TestQuoteFallbackEmptyCorpus(t *testing.T) {
	got := QuoteFallback("anything", nil)
	assert.Equal(t, "I couldn't find anything in your notes about that.", got)
}
