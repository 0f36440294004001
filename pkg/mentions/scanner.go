// Package mentions finds encyclopedia entities (characters and lore entries)
// inside chapter prose. A single Aho-Corasick automaton over all entity names
// keeps scanning linear in the text size.
package mentions

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/fablecraft/gofable/internal/store"
)

// Entity is one scannable name from the story encyclopedia. Kind is
// "character" or the lore category name.
type Entity struct {
	ID   string
	Name string
	Kind string
}

// Mention is one occurrence of an entity in a text, byte offsets into the
// original string.
type Mention struct {
	Entity Entity
	Start  int
	End    int
}

// ChapterMentions aggregates per-entity counts for one chapter.
type ChapterMentions struct {
	ChapterID string
	Counts    map[string]int
}

// Scanner matches entity names case-insensitively on word boundaries.
type Scanner struct {
	ac       *ahocorasick.Automaton
	entities []Entity
	stop     *stopwords.Stopwords
}

// NewScanner compiles the automaton from a story's characters and lore
// entries. Names that are common words ("The", "It") are excluded so prose
// does not light up with false mentions.
func NewScanner(story *store.Story) (*Scanner, error) {
	s := &Scanner{stop: stopwords.MustGet("en")}

	add := func(id, name, kind string) {
		name = strings.TrimSpace(name)
		if utf8.RuneCountInString(name) < 2 {
			return
		}
		lower := strings.ToLower(name)
		if s.stop.Contains(lower) {
			return
		}
		s.entities = append(s.entities, Entity{ID: id, Name: name, Kind: kind})
	}

	for _, c := range story.Characters {
		add(c.ID, c.Name, "character")
	}
	for _, cat := range story.Lore.Categories() {
		for _, e := range cat.Entries {
			add(e.ID, e.Name, cat.Name)
		}
	}
	if len(s.entities) == 0 {
		return s, nil
	}

	patterns := make([]string, len(s.entities))
	for i, e := range s.entities {
		patterns[i] = strings.ToLower(e.Name)
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	s.ac = ac
	return s, nil
}

// Scan returns every whole-word entity occurrence in text.
func (s *Scanner) Scan(text string) []Mention {
	if s.ac == nil || text == "" {
		return nil
	}
	haystack := []byte(strings.ToLower(text))

	var out []Mention
	for _, m := range s.ac.FindAllOverlapping(haystack) {
		if !wholeWord(haystack, m.Start, m.End) {
			continue
		}
		out = append(out, Mention{
			Entity: s.entities[m.PatternID],
			Start:  m.Start,
			End:    m.End,
		})
	}
	return dropNested(out)
}

// ScanStory counts mentions per prose chapter. Section headers carry no
// scannable body.
func (s *Scanner) ScanStory(story *store.Story) []ChapterMentions {
	var out []ChapterMentions
	for _, ch := range story.Chapters {
		if ch.Type == store.ChapterTypeHeader {
			continue
		}
		counts := map[string]int{}
		for _, m := range s.Scan(ch.Content) {
			counts[m.Entity.ID]++
		}
		if len(counts) > 0 {
			out = append(out, ChapterMentions{ChapterID: ch.ID, Counts: counts})
		}
	}
	return out
}

// wholeWord checks that the match does not sit inside a larger word.
func wholeWord(text []byte, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRune(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRune(text[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// dropNested removes matches fully contained in a longer match, so "Mira"
// inside "Mira Vale" counts once.
func dropNested(ms []Mention) []Mention {
	if len(ms) <= 1 {
		return ms
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Start != ms[j].Start {
			return ms[i].Start < ms[j].Start
		}
		return ms[i].End > ms[j].End
	})
	out := ms[:0]
	maxEnd := -1
	for _, m := range ms {
		if m.End <= maxEnd {
			continue
		}
		out = append(out, m)
		maxEnd = m.End
	}
	return out
}
