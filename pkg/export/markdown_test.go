package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecraft/gofable/internal/migrate"
	"github.com/fablecraft/gofable/internal/store"
)

func exportStory() *store.Story {
	return migrate.Story(map[string]any{
		"id":     "s1",
		"title":  "The Long Road",
		"genres": []any{"fantasy"},
		"characters": []any{
			map[string]any{"id": "c1", "name": "Mira", "role": "protagonist"},
		},
		"chapters": []any{
			map[string]any{"id": "ch1", "title": "Dust", "content": "The road began.", "type": "chapter"},
			map[string]any{"id": "hdr", "title": "Part Two", "type": "header"},
			map[string]any{"id": "ch2", "title": "Rain", "content": "It fell for days.", "type": "chapter"},
		},
		"updatedAt": float64(1700000000000),
	})
}

func TestMarkdownLayout(t *testing.T) {
	doc, err := Markdown(exportStory())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "# The Long Road\n"))
	assert.Contains(t, doc, "<!-- ENCYCLOPEDIA_JSON_START -->")
	assert.Contains(t, doc, "<!-- ENCYCLOPEDIA_JSON_END -->")
	assert.Equal(t, 2, strings.Count(doc, "<!-- CHAPTER_BREAK -->"))
	assert.Contains(t, doc, "## Dust")
	assert.Contains(t, doc, "The road began.")

	// Headers emit their heading only, and chapters never leak into the
	// encyclopedia JSON.
	assert.Contains(t, doc, "## Part Two")
	start := strings.Index(doc, "<!-- ENCYCLOPEDIA_JSON_START -->")
	end := strings.Index(doc, "<!-- ENCYCLOPEDIA_JSON_END -->")
	assert.NotContains(t, doc[start:end], "The road began.")
	assert.NotContains(t, doc[start:end], `"chapters"`)
}

func TestMarkdownRoundTrip(t *testing.T) {
	orig := exportStory()
	doc, err := Markdown(orig)
	require.NoError(t, err)

	raw, err := ParseMarkdown(doc)
	require.NoError(t, err)
	got := migrate.Story(raw)

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Title, got.Title)
	assert.Equal(t, orig.Characters, got.Characters)
	assert.Equal(t, orig.UpdatedAt, got.UpdatedAt)

	require.Len(t, got.Chapters, 3)
	assert.Equal(t, "Dust", got.Chapters[0].Title)
	assert.Equal(t, "The road began.", got.Chapters[0].Content)
	assert.Equal(t, store.ChapterTypeHeader, got.Chapters[1].Type)
	assert.Equal(t, "It fell for days.", got.Chapters[2].Content)
}

func TestJSONRoundTrip(t *testing.T) {
	orig := exportStory()
	doc, err := JSON(orig)
	require.NoError(t, err)

	raw, err := ParseJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, orig, migrate.Story(raw))
}

func TestParseMarkdownMissingSentinels(t *testing.T) {
	_, err := ParseMarkdown("# Just a heading\n\nSome prose.")
	assert.Error(t, err)
}
