package session

import (
	"fmt"
	"time"

	"github.com/fablecraft/gofable/internal/store"
)

// CreateSnapshot captures the current title and content of a chapter as an
// immutable version row. Snapshots are written synchronously so the caller
// can rely on the row existing before, say, an AI rewrite lands.
func (s *Session) CreateSnapshot(chapterID, label string) (*store.ChapterVersion, error) {
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

	v := &store.ChapterVersion{
		StoryID:   s.current.ID,
		ChapterID: ch.ID,
		Title:     ch.Title,
		Content:   ch.Content,
		Label:     label,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.store.AddChapterVersion(v); err != nil {
		return nil, fmt.Errorf("failed to snapshot chapter %s: %w", chapterID, err)
	}
	return v, nil
}

// Snapshots lists a chapter's versions, newest first.
func (s *Session) Snapshots(chapterID string) ([]*store.ChapterVersion, error) {
	return s.store.ListChapterVersions(chapterID)
}

// RestoreSnapshot copies a version's title and content back into its chapter.
// The version row itself is untouched.
func (s *Session) RestoreSnapshot(versionID int64) (*store.Story, error) {
	v, err := s.store.GetChapterVersion(versionID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("snapshot %d not found", versionID)
	}
	return s.UpdateChapter(v.ChapterID, v.Title, v.Content)
}

// DeleteSnapshot removes one version row.
func (s *Session) DeleteSnapshot(versionID int64) error {
	return s.store.DeleteChapterVersion(versionID)
}
