package migrate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecraft/gofable/internal/store"
)

func TestStoryDefaults(t *testing.T) {
	s := Story(nil)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Untitled Story", s.Title)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "third-person", s.Perspective)
	assert.Equal(t, "novel", s.TargetLength)
	assert.Equal(t, int64(0), s.UpdatedAt)

	require.Len(t, s.Chapters, 1)
	assert.Equal(t, "Chapter 1", s.Chapters[0].Title)
	assert.Equal(t, store.ChapterTypeProse, s.Chapters[0].Type)

	assert.Equal(t, store.ToneMidpoint, s.Tone.Darkness)
	assert.Equal(t, store.ToneMidpoint, s.Tone.Violence)

	// Collections must be non-nil so they serialize as [] not null.
	assert.NotNil(t, s.Genres)
	assert.NotNil(t, s.Characters)
	assert.NotNil(t, s.Relationships)
	assert.NotNil(t, s.Arc)
	for _, cat := range s.Lore.Categories() {
		assert.NotNil(t, cat.Entries, cat.Name)
	}
}

func TestStoryToneClamping(t *testing.T) {
	s := Story(map[string]any{
		"tone": map[string]any{
			"darkness": float64(12),
			"humor":    float64(0),
			"romance":  "high",
			"suspense": float64(7),
		},
	})

	assert.Equal(t, store.ToneMidpoint, s.Tone.Darkness)
	assert.Equal(t, store.ToneMidpoint, s.Tone.Humor)
	assert.Equal(t, store.ToneMidpoint, s.Tone.Romance)
	assert.Equal(t, 7, s.Tone.Suspense)
	assert.Equal(t, store.ToneMidpoint, s.Tone.Violence)
}

func TestStoryLegacyCharacterFolding(t *testing.T) {
	s := Story(map[string]any{
		"protagonist": map[string]any{"id": "p1", "name": "Mira"},
		"loveInterests": []any{
			map[string]any{"name": "Joren"},
		},
		"antagonists": []any{"The Hollow King", "Mira"},
	})

	require.Len(t, s.Characters, 3)
	assert.Equal(t, "Mira", s.Characters[0].Name)
	assert.Equal(t, store.RoleProtagonist, s.Characters[0].Role)
	assert.Equal(t, "Joren", s.Characters[1].Name)
	assert.Equal(t, store.RoleLoveInterest, s.Characters[1].Role)
	assert.Equal(t, "The Hollow King", s.Characters[2].Name)
	assert.Equal(t, store.RoleAntagonist, s.Characters[2].Role)
}

func TestStoryRelationshipNameRewrite(t *testing.T) {
	s := Story(map[string]any{
		"characters": []any{
			map[string]any{"id": "c1", "name": "Mira", "role": "protagonist"},
			map[string]any{"id": "c2", "name": "Joren", "role": "supporting"},
		},
		"relationships": []any{
			map[string]any{"from": "Mira", "to": "joren", "type": "allies"},
			map[string]any{"fromId": "c2", "toId": "c1", "type": "rivals"},
			map[string]any{"from": "Mira", "to": "Nobody"},
		},
	})

	require.Len(t, s.Relationships, 2)
	assert.Equal(t, store.Relationship{FromID: "c1", ToID: "c2", Type: "allies"}, s.Relationships[0])
	assert.Equal(t, store.Relationship{FromID: "c2", ToID: "c1", Type: "rivals"}, s.Relationships[1])
}

func TestStoryLanguageDetection(t *testing.T) {
	ru := Story(map[string]any{
		"chapters": []any{
			map[string]any{"id": "ch1", "content": "Ветер выл над степью."},
		},
	})
	assert.Equal(t, "ru", ru.Language)
	assert.Equal(t, "от третьего лица", ru.Perspective)

	en := Story(map[string]any{
		"chapters": []any{
			map[string]any{"id": "ch1", "content": "The wind howled over the steppe."},
		},
	})
	assert.Equal(t, "en", en.Language)
	assert.Equal(t, "third-person", en.Perspective)

	// An explicit language is never second-guessed.
	pinned := Story(map[string]any{"language": "en", "title": "Буря"})
	assert.Equal(t, "en", pinned.Language)
}

func TestStoryChapterDefaults(t *testing.T) {
	s := Story(map[string]any{
		"chapters": []any{
			map[string]any{"title": "Prologue", "content": "Once."},
			map[string]any{"id": "ch2", "type": "header", "title": "Part One"},
			map[string]any{"id": "ch3", "type": "weird"},
			"not a chapter",
		},
	})

	require.Len(t, s.Chapters, 3)
	assert.NotEmpty(t, s.Chapters[0].ID)
	assert.Equal(t, store.ChapterTypeProse, s.Chapters[0].Type)
	assert.Equal(t, store.ChapterTypeHeader, s.Chapters[1].Type)
	assert.Equal(t, store.ChapterTypeProse, s.Chapters[2].Type)
}

func TestStoryIdempotent(t *testing.T) {
	first := Story(map[string]any{
		"id":    "s1",
		"title": "The Long Road",
		"characters": []any{
			map[string]any{"id": "c1", "name": "Mira", "role": "protagonist"},
		},
		"relationships": []any{
			map[string]any{"from": "Mira", "to": "Mira", "type": "self"},
		},
		"chapters": []any{
			map[string]any{"id": "ch1", "title": "One", "content": "Text.", "type": "chapter"},
		},
		"tone":      map[string]any{"darkness": float64(8)},
		"updatedAt": float64(1700000000000),
	})

	data, err := json.Marshal(first)
	require.NoError(t, err)
	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(data, &roundTrip))

	second := Story(roundTrip)
	assert.Equal(t, first, second)
}

func TestUniverseDefaults(t *testing.T) {
	u := Universe(map[string]any{
		"locations": []any{
			map[string]any{"id": "l1", "name": "Harrowgate"},
		},
	})

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Untitled Universe", u.Name)
	require.Len(t, u.Lore.Locations, 1)
	assert.Equal(t, "Harrowgate", u.Lore.Locations[0].Name)
	assert.NotNil(t, u.Lore.Cultures)
}

func TestUniverseIdempotent(t *testing.T) {
	first := Universe(map[string]any{
		"id":       "u1",
		"name":     "The Shattered Realms",
		"favorite": true,
		"lore": map[string]any{
			"factions": []any{
				map[string]any{"id": "f1", "name": "The Circle", "description": "Mages."},
			},
		},
		"updatedAt": float64(1700000000000),
	})

	data, err := json.Marshal(first)
	require.NoError(t, err)
	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(data, &roundTrip))

	assert.Equal(t, first, Universe(roundTrip))
}
