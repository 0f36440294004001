// Package session holds the currently open story and applies edits to it.
// Mutations follow a clone-on-write discipline: the held *store.Story is
// treated as immutable, every change produces a new value, and a no-op edit
// returns the exact same pointer without touching storage.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fablecraft/gofable/internal/store"
)

func newID() string { return uuid.NewString() }

var (
	// ErrNotFound is returned when the requested story does not exist.
	ErrNotFound = errors.New("story not found")
	// ErrNoStory is returned by mutations when no story is loaded.
	ErrNoStory = errors.New("no story loaded")
	// ErrLastChapter guards against deleting a story's only chapter.
	ErrLastChapter = errors.New("cannot delete the last chapter")
	// ErrChapterNotFound is returned when a chapter id does not match.
	ErrChapterNotFound = errors.New("chapter not found")
)

// Session is the working context for one open story.
type Session struct {
	store store.Storer
	log   zerolog.Logger

	mu      sync.Mutex
	current *store.Story
	wg      sync.WaitGroup
}

// New creates a session over the given store.
func New(st store.Storer, log zerolog.Logger) *Session {
	return &Session{
		store: st,
		log:   log.With().Str("component", "session").Logger(),
	}
}

// Load fetches a story and makes it the session's current story.
func (s *Session) Load(id string) (*store.Story, error) {
	story, err := s.store.GetStory(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load story %s: %w", id, err)
	}
	if story == nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	s.current = story
	s.mu.Unlock()
	return story, nil
}

// Open makes an already-materialized story current, persisting it first.
// Used for freshly created and freshly imported stories.
func (s *Session) Open(story *store.Story) error {
	if err := s.store.UpsertStory(story); err != nil {
		return fmt.Errorf("failed to persist story %s: %w", story.ID, err)
	}
	s.mu.Lock()
	s.current = story
	s.mu.Unlock()
	return nil
}

// Current returns the story this session holds, or nil.
func (s *Session) Current() *store.Story {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Flush blocks until all pending background writes have completed.
func (s *Session) Flush() {
	s.wg.Wait()
}

// UpdateChapter replaces a chapter's title and content. If neither actually
// changes, the current story is returned as-is and nothing is written.
func (s *Session) UpdateChapter(chapterID, title, content string) (*store.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoStory
	}
	idx := chapterIndex(s.current, chapterID)
	if idx < 0 {
		return nil, ErrChapterNotFound
	}
	ch := s.current.Chapters[idx]
	if ch.Title == title && ch.Content == content {
		return s.current, nil
	}

	next := cloneStory(s.current)
	next.Chapters[idx].Title = title
	next.Chapters[idx].Content = content
	s.commitLocked(next)
	return next, nil
}

// AddChapter appends a new chapter and returns the updated story along with
// the new chapter's id.
func (s *Session) AddChapter(title, chapterType string) (*store.Story, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, "", ErrNoStory
	}
	if chapterType != store.ChapterTypeHeader {
		chapterType = store.ChapterTypeProse
	}
	if title == "" {
		title = fmt.Sprintf("Chapter %d", len(s.current.Chapters)+1)
	}

	next := cloneStory(s.current)
	ch := store.Chapter{
		ID:    newID(),
		Title: title,
		Type:  chapterType,
	}
	next.Chapters = append(next.Chapters, ch)
	s.commitLocked(next)
	return next, ch.ID, nil
}

// DeleteChapter removes a chapter and its version snapshots. Deleting the
// only chapter is refused.
func (s *Session) DeleteChapter(chapterID string) (*store.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoStory
	}
	if len(s.current.Chapters) <= 1 {
		return nil, ErrLastChapter
	}
	idx := chapterIndex(s.current, chapterID)
	if idx < 0 {
		return nil, ErrChapterNotFound
	}

	next := cloneStory(s.current)
	next.Chapters = append(next.Chapters[:idx], next.Chapters[idx+1:]...)
	s.commitLocked(next)

	if err := s.store.DeleteChapterVersions(chapterID); err != nil {
		s.log.Error().Err(err).Str("chapter_id", chapterID).
			Msg("failed to delete chapter snapshots")
	}
	return next, nil
}

// ReorderChapters rearranges chapters to the given id order. The order must
// contain exactly the current chapter ids.
func (s *Session) ReorderChapters(order []string) (*store.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoStory
	}
	if len(order) != len(s.current.Chapters) {
		return nil, fmt.Errorf("order has %d ids, story has %d chapters", len(order), len(s.current.Chapters))
	}

	byID := make(map[string]store.Chapter, len(s.current.Chapters))
	for _, ch := range s.current.Chapters {
		byID[ch.ID] = ch
	}

	reordered := make([]store.Chapter, 0, len(order))
	for _, id := range order {
		ch, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, id)
		}
		delete(byID, id)
		reordered = append(reordered, ch)
	}

	next := cloneStory(s.current)
	next.Chapters = reordered
	s.commitLocked(next)
	return next, nil
}

// UpdateStory applies an arbitrary mutation to a clone of the current story
// and commits the result. The callback must not retain the clone.
func (s *Session) UpdateStory(mutate func(*store.Story)) (*store.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoStory
	}
	next := cloneStory(s.current)
	mutate(next)
	s.commitLocked(next)
	return next, nil
}

// Delete removes the current story and everything hanging off it.
func (s *Session) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoStory
	}
	id := s.current.ID
	s.wg.Wait()
	if err := s.store.DeleteStoryCascade(id); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	if err := s.store.DeleteLoreVectors(id); err != nil {
		s.log.Error().Err(err).Str("story_id", id).Msg("failed to delete lore vectors")
	}
	s.current = nil
	return nil
}

// commitLocked stamps the clone's logical clock, swaps it in and persists it
// in the background. Caller holds s.mu.
func (s *Session) commitLocked(next *store.Story) {
	next.UpdatedAt = touch(s.current.UpdatedAt)
	s.current = next
	s.persistAsync(next)
}

// persistAsync writes fire-and-forget. The UI never waits on storage; a
// failed write is logged and the in-memory state stays authoritative.
func (s *Session) persistAsync(story *store.Story) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.store.UpsertStory(story); err != nil {
			s.log.Error().Err(err).Str("story_id", story.ID).Msg("background persist failed")
		}
	}()
}

// touch produces a strictly increasing timestamp so that rapid successive
// edits within one millisecond still advance the logical clock.
func touch(prev int64) int64 {
	now := time.Now().UnixMilli()
	if now <= prev {
		now = prev + 1
	}
	return now
}

func chapterIndex(story *store.Story, chapterID string) int {
	for i, ch := range story.Chapters {
		if ch.ID == chapterID {
			return i
		}
	}
	return -1
}

// cloneStory copies the story one level deep: top-level slices are fresh so
// the previous value stays valid for readers holding it.
func cloneStory(s *store.Story) *store.Story {
	c := *s
	c.Genres = append([]string(nil), s.Genres...)
	c.Chapters = append([]store.Chapter(nil), s.Chapters...)
	c.Characters = append([]store.Character(nil), s.Characters...)
	c.Relationships = append([]store.Relationship(nil), s.Relationships...)
	c.Arc = append([]store.Act(nil), s.Arc...)
	c.Lore = cloneLore(s.Lore)
	return &c
}

func cloneLore(l store.LoreBook) store.LoreBook {
	cp := func(e []store.LoreEntry) []store.LoreEntry {
		return append([]store.LoreEntry(nil), e...)
	}
	return store.LoreBook{
		Locations:  cp(l.Locations),
		Factions:   cp(l.Factions),
		Lore:       cp(l.Lore),
		Races:      cp(l.Races),
		Creatures:  cp(l.Creatures),
		Powers:     cp(l.Powers),
		Items:      cp(l.Items),
		Technology: cp(l.Technology),
		History:    cp(l.History),
		Cultures:   cp(l.Cultures),
	}
}
