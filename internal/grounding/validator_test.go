package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/registry"
)

func regFixture(notes ...note.Note) *registry.Registry {
	return registry.Build(notes)
}

func TestValidateNoClaims(t *testing.T) {
	v := New(0, nil)
	res := v.Validate("you wrote that the soup needs more salt.", regFixture(), nil)
	assert.True(t, res.Valid)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Empty(t, res.Claims)
}

func TestValidateExactURL(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "Dashboards", Body: "grafana at https://grafana.internal/d/main"})
	v := New(0, nil)

	res := v.Validate("Your dashboard is at https://grafana.internal/d/main.", reg, nil)
	assert.True(t, res.Valid)
	require.Len(t, res.Claims, 1)
	assert.True(t, res.Claims[0].Verified)
	assert.Equal(t, 1.0, res.Claims[0].Confidence)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, "1", res.Citations[0].NoteID)
}

func TestValidateDomainOnlyURLIsWarning(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "Dashboards", Body: "see https://grafana.internal/d/main"})
	v := New(0, nil)

	res := v.Validate("Check https://grafana.internal/d/made-up-path for details.", reg, nil)
	require.Len(t, res.Claims, 1)
	assert.False(t, res.Claims[0].Verified)
	assert.Equal(t, 0.5, res.Claims[0].Confidence)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityWarning, res.Issues[0].Severity)
	// 0.5 < default 0.6 threshold.
	assert.False(t, res.Valid)
}

func TestValidateUnknownURLIsCritical(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "n", Body: "nothing relevant"})
	v := New(0, nil)

	res := v.Validate("It's documented at https://totally-invented.example.net/docs.", reg, nil)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityCritical, res.Issues[0].Severity)
	assert.False(t, res.Valid)
	assert.Equal(t, 0.0, res.Claims[0].Confidence)
}

func TestValidateCriticalOverridesConfidence(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "APIs", Body: "the CRM system and https://crm.internal/login"})
	v := New(0, nil)

	// Verified acronym plus a hallucinated URL: mean confidence can clear
	// the threshold but the critical issue still fails the answer.
	res := v.Validate(`The CRM login is https://fake.example.org/login, per "CRM" notes.`, reg, nil)
	assert.False(t, res.Valid)
}

func TestValidateAcronymClaims(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "Ops", Body: "rotate the TLS cert quarterly"})
	v := New(0, nil)

	res := v.Validate("You need to rotate the TLS cert.", reg, nil)
	require.Len(t, res.Claims, 1)
	assert.True(t, res.Claims[0].Verified)
	assert.Equal(t, 1.0, res.Claims[0].Confidence)
	assert.True(t, res.Valid)
}

func TestValidateQuotedEntityFuzzyMatch(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "People", Body: "lunch with Katharine Reyes on Friday"})
	v := New(0, nil)

	// One edit away from the indexed spelling.
	res := v.Validate(`You met "Katherine Reyes" for lunch.`, reg, nil)
	require.NotEmpty(t, res.Claims)
	claim := res.Claims[len(res.Claims)-1]
	assert.InDelta(t, 0.7, claim.Confidence, 1e-9)
	assert.Equal(t, "1", claim.SourceNoteID)
}

func TestValidateUnknownEntityIsWarning(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "n", Body: "plain text only"})
	v := New(0, nil)

	res := v.Validate(`The vendor is "Quixotic Widgets Ltd".`, reg, nil)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, SeverityWarning, res.Issues[0].Severity)
	assert.Equal(t, 0.0, res.Claims[0].Confidence)
}

func TestValidateAmbiguityResolvedByHints(t *testing.T) {
	reg := regFixture(
		note.Note{ID: "1", Title: "Work contacts", Body: "Alex Marin handles procurement budgets"},
		note.Note{ID: "2", Title: "Climbing", Body: "Alex Martin belayed on Saturday"},
	)
	v := New(0, nil)

	// "Alex" is a prefix of two different indexed people, so string
	// evidence alone cannot separate them.
	withHint := v.Validate(`You asked "Alex" about it.`, reg, []string{"the climbing trip"})
	var resolved bool
	for _, c := range withHint.Citations {
		if c.NoteID == "2" {
			resolved = true
		}
	}
	assert.True(t, resolved)

	noHint := v.Validate(`You asked "Alex" about it.`, reg, nil)
	var ambiguous bool
	for _, issue := range noHint.Issues {
		if issue.Message == "entity is ambiguous between multiple notes" {
			ambiguous = true
		}
	}
	assert.True(t, ambiguous)
}

func TestValidateDeduplicatesRepeatedClaims(t *testing.T) {
	reg := regFixture(note.Note{ID: "1", Title: "Ops", Body: "the VPN config"})
	v := New(0, nil)

	res := v.Validate("VPN here, VPN there, VPN everywhere.", reg, nil)
	assert.Len(t, res.Claims, 1)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "example.com", hostOf("https://www.example.com/path"))
	assert.Equal(t, "example.com", hostOf("http://example.com"))
	assert.Equal(t, "", hostOf("://bad"))
}
