package planner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/notewise/internal/llm"
)

// fakeClient routes completions by system prompt so one fake serves both
// the plan and expand legs.
type fakeClient struct {
	planReply   string
	planErr     error
	expandReply string
	expandErr   error
	calls       atomic.Int32
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls.Add(1)
	system := req.Messages[0].Content
	if strings.Contains(system, "decompose") {
		return f.planReply, f.planErr
	}
	return f.expandReply, f.expandErr
}

const longQuestion = "where did I write down the wifi password for the cabin?"

func TestBuildQuerySet(t *testing.T) {
	client := &fakeClient{
		planReply:   `{"queries": ["cabin wifi password", "cabin network"], "hypothetical_answer": "The cabin wifi password is in the rental note."}`,
		expandReply: `{"variants": ["cabin wi-fi passphrase", "cottage wifi password"]}`,
	}
	p := New(client, nil, 0, 0)

	qs := p.BuildQuerySet(context.Background(), longQuestion, nil)
	assert.Equal(t, longQuestion, qs.Raw)
	assert.Equal(t, []string{"cabin wifi password", "cabin network"}, qs.SubQueries)
	assert.Equal(t, "The cabin wifi password is in the rental note.", qs.Hypothetical)
	assert.Equal(t, []string{"cabin wi-fi passphrase", "cottage wifi password"}, qs.Variants)

	all := qs.All()
	assert.Equal(t, longQuestion, all[0])
	assert.Len(t, all, 6)
}

func TestBuildQuerySetFailSilent(t *testing.T) {
	client := &fakeClient{
		planErr:   errors.New("boom"),
		expandErr: errors.New("boom"),
	}
	p := New(client, nil, 0, 0)

	qs := p.BuildQuerySet(context.Background(), longQuestion, nil)
	assert.Equal(t, []string{longQuestion}, qs.All())
}

func TestBuildQuerySetUnparseableReplies(t *testing.T) {
	client := &fakeClient{
		planReply:   "I think you should search for wifi stuff.",
		expandReply: "no json here either",
	}
	p := New(client, nil, 0, 0)

	qs := p.BuildQuerySet(context.Background(), longQuestion, nil)
	assert.Equal(t, []string{longQuestion}, qs.All())
}

func TestPlanGateSkipsShortQuestions(t *testing.T) {
	client := &fakeClient{}
	p := New(client, nil, 24, 6)

	_, ok := p.Plan(context.Background(), "wifi password?", nil)
	assert.False(t, ok)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestPlanGateAllowsShortQuestionsWithHistory(t *testing.T) {
	client := &fakeClient{planReply: `{"queries": ["cabin wifi"], "hypothetical_answer": ""}`}
	p := New(client, nil, 24, 6)

	history := []llm.Message{{Role: llm.RoleUser, Content: "tell me about the cabin"}}
	plan, ok := p.Plan(context.Background(), "and the wifi?", history)
	require.True(t, ok)
	assert.Equal(t, []string{"cabin wifi"}, plan.Queries)
}

func TestPlanCapsSubQueries(t *testing.T) {
	client := &fakeClient{
		planReply: `{"queries": ["a", "b", "c", "d", "e"], "hypothetical_answer": ""}`,
	}
	p := New(client, nil, 0, 0)

	plan, ok := p.Plan(context.Background(), longQuestion, nil)
	require.True(t, ok)
	assert.Len(t, plan.Queries, maxSubQueries)
}

func TestQuerySetAllDeduplicates(t *testing.T) {
	qs := QuerySet{
		Raw:        "Cabin WiFi",
		SubQueries: []string{"cabin wifi", "cabin network"},
		Variants:   []string{"  cabin network  ", ""},
	}
	assert.Equal(t, []string{"Cabin WiFi", "cabin network"}, qs.All())
}

func TestFormatHistory(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleAssistant, Content: "second"},
		{Role: llm.RoleUser, Content: "third"},
	}
	got := FormatHistory(history, 2)
	assert.Equal(t, "assistant: second\nuser: third\n", got)
}
