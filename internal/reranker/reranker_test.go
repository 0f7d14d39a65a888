package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mossline/notewise/internal/llm"
	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/ranker"
)

type scriptedClient struct {
	reply string
	err   error
	calls int
}

func (s *scriptedClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	return s.reply, s.err
}

func rankedFixture(ids ...string) []ranker.RankedNote {
	out := make([]ranker.RankedNote, 0, len(ids))
	for i, id := range ids {
		out = append(out, ranker.RankedNote{
			Note:  note.Note{ID: id, Title: "note " + id, Body: "body " + id},
			Score: float64(len(ids) - i),
		})
	}
	return out
}

func ids(ranked []ranker.RankedNote) []string {
	out := make([]string, len(ranked))
	for i, rn := range ranked {
		out[i] = rn.Note.ID
	}
	return out
}

func TestRerankPromotesSelected(t *testing.T) {
	client := &scriptedClient{reply: `{"relevant": [3, 1]}`}
	r := New(client, nil, 0)

	got := r.Rerank(context.Background(), "q", rankedFixture("a", "b", "c", "d"))
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(got))
}

func TestRerankKeepsUnselectedAndTail(t *testing.T) {
	client := &scriptedClient{reply: `{"relevant": [2]}`}
	r := New(client, nil, 3)

	// "d" and "e" sit beyond the candidate window and must trail unchanged.
	got := r.Rerank(context.Background(), "q", rankedFixture("a", "b", "c", "d", "e"))
	assert.Equal(t, []string{"b", "a", "c", "d", "e"}, ids(got))
}

func TestRerankFailOpen(t *testing.T) {
	input := rankedFixture("a", "b", "c")
	tests := []struct {
		name   string
		client *scriptedClient
	}{
		{"transport error", &scriptedClient{err: errors.New("boom")}},
		{"unparseable reply", &scriptedClient{reply: "these all look great"}},
		{"empty selection", &scriptedClient{reply: `{"relevant": []}`}},
		{"out of range indices", &scriptedClient{reply: `{"relevant": [0, 9, -3]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.client, nil, 0)
			got := r.Rerank(context.Background(), "q", input)
			assert.Equal(t, ids(input), ids(got))
		})
	}
}

func TestRerankIgnoresDuplicateIndices(t *testing.T) {
	client := &scriptedClient{reply: `{"relevant": [2, 2, 1]}`}
	r := New(client, nil, 0)

	got := r.Rerank(context.Background(), "q", rankedFixture("a", "b", "c"))
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))
}

func TestRerankEmptyInputSkipsCall(t *testing.T) {
	client := &scriptedClient{reply: `{"relevant": [1]}`}
	r := New(client, nil, 0)

	got := r.Rerank(context.Background(), "q", nil)
	assert.Empty(t, got)
	assert.Zero(t, client.calls)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short body", snippet("short   body", 50))
	long := snippet("word word word word word word", 10)
	assert.Equal(t, "word word ...", long)
}
