package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/notewise/internal/note"
	"github.com/mossline/notewise/internal/ranker"
)

func ranked(n note.Note) ranker.RankedNote {
	return ranker.RankedNote{Note: n}
}

func TestLinkPullsMentionedNotes(t *testing.T) {
	project := note.Note{ID: "1", Title: "Project Atlas", Body: "kickoff covered in Meeting Notes May and the Budget Draft"}
	meeting := note.Note{ID: "2", Title: "Meeting Notes May", Body: "decisions from the kickoff"}
	budget := note.Note{ID: "3", Title: "Budget Draft", Body: "numbers"}
	unrelated := note.Note{ID: "4", Title: "Grocery list", Body: "milk"}
	corpus := []note.Note{project, meeting, budget, unrelated}

	entries := Link([]ranker.RankedNote{ranked(project)}, corpus, 5)
	require.Len(t, entries, 3)
	assert.Equal(t, "1", entries[0].Ranked.Note.ID)
	assert.False(t, entries[0].Linked)
	assert.Equal(t, "2", entries[1].Ranked.Note.ID)
	assert.True(t, entries[1].Linked)
	assert.Equal(t, "3", entries[2].Ranked.Note.ID)
	assert.True(t, entries[2].Linked)
}

func TestLinkCaseInsensitive(t *testing.T) {
	top := note.Note{ID: "1", Title: "Trip", Body: "see PACKING LIST for details"}
	packing := note.Note{ID: "2", Title: "Packing List", Body: "socks"}

	entries := Link([]ranker.RankedNote{ranked(top)}, []note.Note{top, packing}, 5)
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[1].Ranked.Note.ID)
}

func TestLinkNeverDuplicatesTier1(t *testing.T) {
	a := note.Note{ID: "1", Title: "Alpha Plan", Body: "references Beta Plan"}
	b := note.Note{ID: "2", Title: "Beta Plan", Body: "references Alpha Plan"}

	entries := Link([]ranker.RankedNote{ranked(a), ranked(b)}, []note.Note{a, b}, 5)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.Linked)
	}
}

func TestLinkRespectsMaxLinked(t *testing.T) {
	top := note.Note{ID: "1", Title: "Hub", Body: "see Spoke One and Spoke Two and Spoke Three"}
	corpus := []note.Note{
		top,
		{ID: "2", Title: "Spoke One"},
		{ID: "3", Title: "Spoke Two"},
		{ID: "4", Title: "Spoke Three"},
	}

	entries := Link([]ranker.RankedNote{ranked(top)}, corpus, 2)
	assert.Len(t, entries, 3)

	entries = Link([]ranker.RankedNote{ranked(top)}, corpus, 0)
	assert.Len(t, entries, 1)
}

func TestLinkIgnoresShortTitles(t *testing.T) {
	top := note.Note{ID: "1", Title: "Reading", Body: "learning go this month"}
	short := note.Note{ID: "2", Title: "go", Body: "language notes"}

	entries := Link([]ranker.RankedNote{ranked(top)}, []note.Note{top, short}, 5)
	assert.Len(t, entries, 1)
}

func TestLinkOnePassOnly(t *testing.T) {
	top := note.Note{ID: "1", Title: "Start", Body: "see Middle Note"}
	middle := note.Note{ID: "2", Title: "Middle Note", Body: "see Deep Note"}
	deep := note.Note{ID: "3", Title: "Deep Note", Body: "bottom"}

	entries := Link([]ranker.RankedNote{ranked(top)}, []note.Note{top, middle, deep}, 5)
	// Deep Note is only mentioned by a linked note, not a tier-1 note.
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[1].Ranked.Note.ID)
}
