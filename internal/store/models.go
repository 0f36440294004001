// Package store provides SQLite-backed persistence for the Fablecraft engine.
// This is the unified data layer replacing Dexie/IndexedDB in the TypeScript client.
package store

// Chapter type tags. Section headers carry no prose: they are skipped by
// word counts, global search and chapter-body export.
const (
	ChapterTypeProse  = "chapter"
	ChapterTypeHeader = "header"
)

// Chapter is one ordered unit of a story's manuscript. Chapters are embedded
// in the Story record, not a separate collection.
type Chapter struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Character role tags used when folding legacy single-character fields.
const (
	RoleProtagonist  = "protagonist"
	RoleAntagonist   = "antagonist"
	RoleLoveInterest = "love_interest"
	RoleSupporting   = "supporting"
)

// Character is an encyclopedia entry for one cast member.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description,omitempty"`
}

// Relationship links two characters by id. Legacy records keyed by character
// name are rewritten to ids by the migration layer.
type Relationship struct {
	FromID      string `json:"fromId"`
	ToID        string `json:"toId"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// PlotPoint is a single ordered beat inside an act.
type PlotPoint struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// Act is a named structural segment of the story arc.
type Act struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	PlotPoints []PlotPoint `json:"plotPoints"`
}

// LoreEntry is one named entry inside a lore category.
type LoreEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LoreBook holds the ten lore categories shared by Story and Universe.
type LoreBook struct {
	Locations  []LoreEntry `json:"locations"`
	Factions   []LoreEntry `json:"factions"`
	Lore       []LoreEntry `json:"lore"`
	Races      []LoreEntry `json:"races"`
	Creatures  []LoreEntry `json:"creatures"`
	Powers     []LoreEntry `json:"powers"`
	Items      []LoreEntry `json:"items"`
	Technology []LoreEntry `json:"technology"`
	History    []LoreEntry `json:"history"`
	Cultures   []LoreEntry `json:"cultures"`
}

// LoreCategory pairs a category name with its entries.
type LoreCategory struct {
	Name    string
	Entries []LoreEntry
}

// Categories returns the lore categories in a fixed order, for code that
// iterates all of them (export, mention scanning, vector indexing).
func (l *LoreBook) Categories() []LoreCategory {
	return []LoreCategory{
		{"locations", l.Locations},
		{"factions", l.Factions},
		{"lore", l.Lore},
		{"races", l.Races},
		{"creatures", l.Creatures},
		{"powers", l.Powers},
		{"items", l.Items},
		{"technology", l.Technology},
		{"history", l.History},
		{"cultures", l.Cultures},
	}
}

// ToneMidpoint is the default for every tone scalar.
const ToneMidpoint = 5

// ToneLevels are 1-10 scalars steering generation.
type ToneLevels struct {
	Darkness int `json:"darkness"`
	Humor    int `json:"humor"`
	Romance  int `json:"romance"`
	Suspense int `json:"suspense"`
	Violence int `json:"violence"`
}

// Story is the primary aggregate: full encyclopedia plus the ordered chapter
// list. UpdatedAt is the logical clock used for last-write-wins sync; it must
// be refreshed on every persisted mutation.
type Story struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Genres        []string       `json:"genres"`
	Setting       string         `json:"setting"`
	TargetLength  string         `json:"targetLength"`
	Language      string         `json:"language"`
	Perspective   string         `json:"perspective"`
	ProseStyle    string         `json:"proseStyle"`
	Tone          ToneLevels     `json:"tone"`
	Characters    []Character    `json:"characters"`
	Relationships []Relationship `json:"relationships"`
	Arc           []Act          `json:"arc"`
	Lore          LoreBook       `json:"lore"`
	Chapters      []Chapter      `json:"chapters"`
	UniverseID    string         `json:"universeId,omitempty"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
}

// WordCount counts whitespace-separated words across prose chapters.
// Section headers are excluded.
func (s *Story) WordCount() int {
	total := 0
	for _, ch := range s.Chapters {
		if ch.Type == ChapterTypeHeader {
			continue
		}
		inWord := false
		for _, r := range ch.Content {
			switch r {
			case ' ', '\t', '\n', '\r':
				inWord = false
			default:
				if !inWord {
					total++
					inWord = true
				}
			}
		}
	}
	return total
}

// Universe is a reusable lore bundle independent of any single story. A story
// copies a universe's id at creation time; there is no live link afterwards.
type Universe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Favorite    bool     `json:"favorite"`
	Lore        LoreBook `json:"lore"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

// Message authors.
const (
	AuthorUser = "user"
	AuthorAI   = "ai"
)

// Message is a single chat turn.
type Message struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChatSession holds the transcript for one story, keyed by the story id.
type ChatSession struct {
	StoryID  string    `json:"storyId"`
	Messages []Message `json:"messages"`
}

// BackupMetadata tracks the word count at last export, keyed by story id.
// Used to remind the user when the manuscript has drifted from its last backup.
type BackupMetadata struct {
	StoryID       string `json:"storyId"`
	WordsAtExport int    `json:"wordsAtExport"`
	LastExportAt  int64  `json:"lastExportAt"`
}

// ChapterVersion is an immutable snapshot of one chapter's title and content.
// Rows are append-only: created on demand, deleted individually or when the
// parent chapter or story goes away, never mutated.
type ChapterVersion struct {
	ID        int64  `json:"id"`
	StoryID   string `json:"storyId"`
	ChapterID string `json:"chapterId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Label     string `json:"label,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// LoreMatch is one kNN result from the lore vector index.
type LoreMatch struct {
	EntryID  string  `json:"entryId"`
	Distance float64 `json:"distance"`
}

// Storer defines the interface for data persistence.
// SQLiteStore is the sole implementation.
type Storer interface {
	// Stories
	UpsertStory(story *Story) error
	BulkUpsertStories(stories []*Story) error
	GetStory(id string) (*Story, error)
	ListStories() ([]*Story, error)
	DeleteStoryCascade(id string) error
	CountStories() (int, error)

	// Universes
	UpsertUniverse(u *Universe) error
	BulkUpsertUniverses(us []*Universe) error
	GetUniverse(id string) (*Universe, error)
	ListUniverses() ([]*Universe, error)
	DeleteUniverse(id string) error

	// Chat sessions (1:1 with story)
	GetChat(storyID string) (*ChatSession, error)
	PutChat(chat *ChatSession) error

	// Backup bookkeeping (1:1 with story)
	GetBackup(storyID string) (*BackupMetadata, error)
	PutBackup(b *BackupMetadata) error

	// Chapter version snapshots
	AddChapterVersion(v *ChapterVersion) error
	GetChapterVersion(id int64) (*ChapterVersion, error)
	ListChapterVersions(chapterID string) ([]*ChapterVersion, error)
	DeleteChapterVersion(id int64) error
	DeleteChapterVersions(chapterID string) error

	// Lore vector index (created on demand)
	EnsureVectorIndex(dim int) error
	UpsertLoreVector(storyID, entryID string, embedding []float32) error
	SimilarLore(storyID string, embedding []float32, k int) ([]LoreMatch, error)
	DeleteLoreVectors(storyID string) error

	// Lifecycle
	Close() error
}
