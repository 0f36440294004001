package mentions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecraft/gofable/internal/store"
)

func scanStory() *store.Story {
	return &store.Story{
		ID: "s1",
		Characters: []store.Character{
			{ID: "c1", Name: "Mira Vale", Role: store.RoleProtagonist},
			{ID: "c2", Name: "Joren", Role: store.RoleSupporting},
			{ID: "c3", Name: "The", Role: store.RoleSupporting},
		},
		Lore: store.LoreBook{
			Locations: []store.LoreEntry{{ID: "l1", Name: "Harrowgate"}},
		},
		Chapters: []store.Chapter{
			{ID: "ch1", Type: store.ChapterTypeProse,
				Content: "Mira Vale rode toward Harrowgate. Joren followed. The gates of harrowgate were shut."},
			{ID: "hdr", Type: store.ChapterTypeHeader, Title: "Joren's Part"},
			{ID: "ch2", Type: store.ChapterTypeProse, Content: "Nothing here."},
		},
	}
}

func TestScanFindsEntities(t *testing.T) {
	sc, err := NewScanner(scanStory())
	require.NoError(t, err)

	ms := sc.Scan("Mira Vale met Joren near Harrowgate.")
	require.Len(t, ms, 3)
	assert.Equal(t, "c1", ms[0].Entity.ID)
	assert.Equal(t, "c2", ms[1].Entity.ID)
	assert.Equal(t, "l1", ms[2].Entity.ID)
	assert.Equal(t, "locations", ms[2].Entity.Kind)
}

func TestScanCaseInsensitiveWholeWord(t *testing.T) {
	sc, err := NewScanner(scanStory())
	require.NoError(t, err)

	ms := sc.Scan("they reached HARROWGATE at dusk")
	require.Len(t, ms, 1)
	assert.Equal(t, "l1", ms[0].Entity.ID)

	// "Joren" inside "Jorenson" is not a mention.
	assert.Empty(t, sc.Scan("Jorenson owned the mill."))
}

func TestScanStopwordNamesIgnored(t *testing.T) {
	sc, err := NewScanner(scanStory())
	require.NoError(t, err)

	// A character literally named "The" never matches.
	assert.Empty(t, sc.Scan("The road was long."))
}

func TestScanStoryCountsSkipHeaders(t *testing.T) {
	story := scanStory()
	sc, err := NewScanner(story)
	require.NoError(t, err)

	reports := sc.ScanStory(story)
	require.Len(t, reports, 1)
	assert.Equal(t, "ch1", reports[0].ChapterID)
	assert.Equal(t, 1, reports[0].Counts["c1"])
	assert.Equal(t, 1, reports[0].Counts["c2"])
	assert.Equal(t, 2, reports[0].Counts["l1"])
}

func TestScanEmptyEncyclopedia(t *testing.T) {
	sc, err := NewScanner(&store.Story{})
	require.NoError(t, err)
	assert.Empty(t, sc.Scan("Anything at all."))
}
