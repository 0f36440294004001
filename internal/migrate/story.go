package migrate

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/fablecraft/gofable/internal/store"
)

const toneMidpoint = store.ToneMidpoint

// Language codes inferred from record content.
const (
	langEnglish = "en"
	langRussian = "ru"
)

// Default perspective wording per content language.
var defaultPerspective = map[string]string{
	langEnglish: "third-person",
	langRussian: "от третьего лица",
}

// Story upgrades an arbitrarily-shaped story record into the current schema.
// Input is a decoded JSON object or a Firestore document map. Migration is
// pure, deterministic and idempotent: a record already in the current shape
// comes back unchanged in substance.
func Story(raw map[string]any) *store.Story {
	s := &store.Story{
		ID:           getString(raw, "id", uuid.NewString()),
		Title:        getString(raw, "title", "Untitled Story"),
		Genres:       getStringSlice(raw, "genres"),
		Setting:      getText(raw, "setting"),
		TargetLength: getString(raw, "targetLength", "novel"),
		ProseStyle:   getText(raw, "proseStyle"),
		UniverseID:   getText(raw, "universeId"),
		CreatedAt:    getInt64(raw, "createdAt", 0),
		UpdatedAt:    getInt64(raw, "updatedAt", 0),
	}

	s.Chapters = migrateChapters(raw)
	s.Characters = migrateCharacters(raw)
	s.Relationships = migrateRelationships(raw, s.Characters)
	s.Arc = migrateArc(raw)
	s.Lore = migrateLore(raw)
	s.Tone = migrateTone(raw)

	s.Language = getString(raw, "language", detectLanguage(s))
	s.Perspective = getString(raw, "perspective", perspectiveFor(s.Language))

	return s
}

// StoryFromJSON decodes and migrates in one step. Undecodable input yields a
// fresh default story rather than an error: migration has no failure mode.
func StoryFromJSON(data []byte) *store.Story {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = nil
	}
	return Story(raw)
}

// migrateChapters guarantees every chapter an id and a type, and every story
// at least one chapter.
func migrateChapters(raw map[string]any) []store.Chapter {
	var chapters []store.Chapter
	for i, v := range asSlice(rawKey(raw, "chapters")) {
		cm := asMap(v)
		if cm == nil {
			continue
		}
		ch := store.Chapter{
			ID:      getString(cm, "id", uuid.NewString()),
			Title:   getString(cm, "title", fmt.Sprintf("Chapter %d", i+1)),
			Content: getText(cm, "content"),
			Type:    getText(cm, "type"),
		}
		if ch.Type != store.ChapterTypeProse && ch.Type != store.ChapterTypeHeader {
			ch.Type = store.ChapterTypeProse
		}
		chapters = append(chapters, ch)
	}
	if len(chapters) == 0 {
		chapters = []store.Chapter{{
			ID:    uuid.NewString(),
			Title: "Chapter 1",
			Type:  store.ChapterTypeProse,
		}}
	}
	return chapters
}

// migrateCharacters folds the unified character list together with the legacy
// single-protagonist and loveInterests/antagonists fields, de-duplicated by
// name (first occurrence wins).
func migrateCharacters(raw map[string]any) []store.Character {
	out := []store.Character{}
	seen := map[string]bool{}

	add := func(v any, defaultRole string) {
		var c store.Character
		switch t := v.(type) {
		case map[string]any:
			c = store.Character{
				ID:          getString(t, "id", uuid.NewString()),
				Name:        strings.TrimSpace(getText(t, "name")),
				Role:        getString(t, "role", defaultRole),
				Description: getText(t, "description"),
			}
		case string:
			// Oldest exports stored bare names.
			c = store.Character{
				ID:   uuid.NewString(),
				Name: strings.TrimSpace(t),
				Role: defaultRole,
			}
		default:
			return
		}
		if c.Name == "" {
			return
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}

	for _, v := range asSlice(rawKey(raw, "characters")) {
		add(v, store.RoleSupporting)
	}
	if raw != nil {
		if p, ok := raw["protagonist"]; ok {
			add(p, store.RoleProtagonist)
		}
	}
	for _, v := range asSlice(rawKey(raw, "loveInterests")) {
		add(v, store.RoleLoveInterest)
	}
	for _, v := range asSlice(rawKey(raw, "antagonists")) {
		add(v, store.RoleAntagonist)
	}
	return out
}

// migrateRelationships rewrites legacy name-keyed relationships to id-keyed
// ones via a name lookup over the migrated character list. A relationship
// whose endpoints cannot both be resolved is dropped.
func migrateRelationships(raw map[string]any, characters []store.Character) []store.Relationship {
	ids := map[string]bool{}
	nameToID := map[string]string{}
	for _, c := range characters {
		ids[c.ID] = true
		nameToID[strings.ToLower(c.Name)] = c.ID
	}

	resolve := func(rm map[string]any, idKey, nameKey string) string {
		if id := getText(rm, idKey); id != "" && ids[id] {
			return id
		}
		if name := getText(rm, nameKey); name != "" {
			return nameToID[strings.ToLower(name)]
		}
		return ""
	}

	out := []store.Relationship{}
	for _, v := range asSlice(rawKey(raw, "relationships")) {
		rm := asMap(v)
		if rm == nil {
			continue
		}
		from := resolve(rm, "fromId", "from")
		to := resolve(rm, "toId", "to")
		if from == "" || to == "" {
			continue
		}
		out = append(out, store.Relationship{
			FromID:      from,
			ToID:        to,
			Type:        getText(rm, "type"),
			Description: getText(rm, "description"),
		})
	}
	return out
}

func migrateArc(raw map[string]any) []store.Act {
	out := []store.Act{}
	for i, v := range asSlice(rawKey(raw, "arc")) {
		am := asMap(v)
		if am == nil {
			continue
		}
		act := store.Act{
			ID:         getString(am, "id", uuid.NewString()),
			Title:      getString(am, "title", fmt.Sprintf("Act %d", i+1)),
			PlotPoints: []store.PlotPoint{},
		}
		for _, pv := range asSlice(am["plotPoints"]) {
			switch t := pv.(type) {
			case map[string]any:
				p := store.PlotPoint{
					ID:      getString(t, "id", uuid.NewString()),
					Summary: getText(t, "summary"),
				}
				if p.Summary != "" {
					act.PlotPoints = append(act.PlotPoints, p)
				}
			case string:
				if t != "" {
					act.PlotPoints = append(act.PlotPoints, store.PlotPoint{
						ID:      uuid.NewString(),
						Summary: t,
					})
				}
			}
		}
		out = append(out, act)
	}
	return out
}

// migrateLore reads the ten categories from the nested lore object, falling
// back to top-level keys for pre-lorebook exports. Every category is a
// non-nil slice afterwards.
func migrateLore(raw map[string]any) store.LoreBook {
	nested := asMap(rawKey(raw, "lore"))

	category := func(key string) []store.LoreEntry {
		src := asSlice(rawKey(nested, key))
		if src == nil {
			src = asSlice(rawKey(raw, key))
		}
		out := []store.LoreEntry{}
		for _, v := range src {
			em := asMap(v)
			if em == nil {
				continue
			}
			e := store.LoreEntry{
				ID:          getString(em, "id", uuid.NewString()),
				Name:        strings.TrimSpace(getText(em, "name")),
				Description: getText(em, "description"),
			}
			if e.Name == "" {
				continue
			}
			out = append(out, e)
		}
		return out
	}

	return store.LoreBook{
		Locations:  category("locations"),
		Factions:   category("factions"),
		Lore:       category("lore"),
		Races:      category("races"),
		Creatures:  category("creatures"),
		Powers:     category("powers"),
		Items:      category("items"),
		Technology: category("technology"),
		History:    category("history"),
		Cultures:   category("cultures"),
	}
}

// Nested lore maps reuse the "lore" key for their own category; rawKey guards
// the nil-map case so callers can chain lookups without checks.
func rawKey(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func migrateTone(raw map[string]any) store.ToneLevels {
	tm := asMap(rawKey(raw, "tone"))
	return store.ToneLevels{
		Darkness: clampTone(tm, "darkness"),
		Humor:    clampTone(tm, "humor"),
		Romance:  clampTone(tm, "romance"),
		Suspense: clampTone(tm, "suspense"),
		Violence: clampTone(tm, "violence"),
	}
}

// detectLanguage inspects the story's own text. Cyrillic content maps to
// Russian; everything else defaults to English.
func detectLanguage(s *store.Story) string {
	var sample strings.Builder
	sample.WriteString(s.Title)
	sample.WriteString(s.Setting)
	for _, ch := range s.Chapters {
		sample.WriteString(ch.Title)
		if len(ch.Content) > 0 {
			end := len(ch.Content)
			if end > 512 {
				end = 512
			}
			sample.WriteString(ch.Content[:end])
		}
	}
	for _, r := range sample.String() {
		if unicode.Is(unicode.Cyrillic, r) {
			return langRussian
		}
	}
	return langEnglish
}

func perspectiveFor(language string) string {
	if p, ok := defaultPerspective[language]; ok {
		return p
	}
	return defaultPerspective[langEnglish]
}
