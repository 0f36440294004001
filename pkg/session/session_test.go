package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecraft/gofable/internal/migrate"
	"github.com/fablecraft/gofable/internal/store"
)

func newTestSession(t *testing.T) (*Session, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, zerolog.Nop()), st
}

func openTestStory(t *testing.T, s *Session) *store.Story {
	t.Helper()
	story := migrate.Story(map[string]any{
		"id":    "s1",
		"title": "Test Story",
		"chapters": []any{
			map[string]any{"id": "ch1", "title": "One", "content": "The cat sat.", "type": "chapter"},
			map[string]any{"id": "hdr", "title": "Part Two", "type": "header"},
			map[string]any{"id": "ch2", "title": "Two", "content": "The cat ran. A cat!", "type": "chapter"},
		},
	})
	require.NoError(t, s.Open(story))
	return story
}

func TestLoadMissingStory(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateChapterPersists(t *testing.T) {
	s, st := newTestSession(t)
	before := openTestStory(t, s)

	after, err := s.UpdateChapter("ch1", "One", "The dog sat.")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, "The dog sat.", after.Chapters[0].Content)
	assert.Greater(t, after.UpdatedAt, before.UpdatedAt)

	// The previous value must be untouched.
	assert.Equal(t, "The cat sat.", before.Chapters[0].Content)

	s.Flush()
	stored, err := st.GetStory("s1")
	require.NoError(t, err)
	assert.Equal(t, "The dog sat.", stored.Chapters[0].Content)
}

func TestUpdateChapterNoChangeShortCircuits(t *testing.T) {
	s, _ := newTestSession(t)
	openTestStory(t, s)
	before := s.Current()

	after, err := s.UpdateChapter("ch1", "One", "The cat sat.")
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestDeleteLastChapterRefused(t *testing.T) {
	s, _ := newTestSession(t)
	story := migrate.Story(map[string]any{"id": "solo"})
	require.NoError(t, s.Open(story))

	_, err := s.DeleteChapter(story.Chapters[0].ID)
	assert.ErrorIs(t, err, ErrLastChapter)
}

func TestDeleteChapterDropsSnapshots(t *testing.T) {
	s, st := newTestSession(t)
	openTestStory(t, s)

	_, err := s.CreateSnapshot("ch1", "before delete")
	require.NoError(t, err)

	after, err := s.DeleteChapter("ch1")
	require.NoError(t, err)
	assert.Len(t, after.Chapters, 2)

	versions, err := st.ListChapterVersions("ch1")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestReorderChapters(t *testing.T) {
	s, _ := newTestSession(t)
	openTestStory(t, s)

	after, err := s.ReorderChapters([]string{"ch2", "hdr", "ch1"})
	require.NoError(t, err)
	assert.Equal(t, "ch2", after.Chapters[0].ID)
	assert.Equal(t, "ch1", after.Chapters[2].ID)

	_, err = s.ReorderChapters([]string{"ch1", "ch2"})
	assert.Error(t, err)

	_, err = s.ReorderChapters([]string{"ch1", "ch2", "bogus"})
	assert.ErrorIs(t, err, ErrChapterNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s, _ := newTestSession(t)
	openTestStory(t, s)

	v, err := s.CreateSnapshot("ch1", "v1")
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "The cat sat.", v.Content)

	_, err = s.UpdateChapter("ch1", "One", "Rewritten entirely.")
	require.NoError(t, err)

	restored, err := s.RestoreSnapshot(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "The cat sat.", restored.Chapters[0].Content)

	versions, err := s.Snapshots("ch1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.NoError(t, s.DeleteSnapshot(v.ID))
	versions, err = s.Snapshots("ch1")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSearchGlobal(t *testing.T) {
	s, _ := newTestSession(t)
	openTestStory(t, s)

	matches, err := s.SearchGlobal("cat", Options{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].Count)
	assert.Equal(t, 2, matches[1].Count)

	// Headers never match even if their title would.
	matches, err = s.SearchGlobal("Part", Options{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = s.SearchGlobal("Cat", Options{MatchCase: true})
	require.NoError(t, err)
	assert.Empty(t, matches)

	// "cat" as a whole word does not match "catalog".
	_, err = s.UpdateChapter("ch1", "One", "A catalog of cats.")
	require.NoError(t, err)
	matches, err = s.SearchGlobal("cat", Options{WholeWord: true})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ch2", matches[0].ChapterID)
}

func TestReplaceGlobal(t *testing.T) {
	s, st := newTestSession(t)
	before := openTestStory(t, s)

	res, err := s.ReplaceGlobal("cat", "dog", Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalMatches)
	assert.Equal(t, 2, res.ChaptersAffected)

	cur := s.Current()
	assert.Equal(t, "The dog sat.", cur.Chapters[0].Content)
	assert.Equal(t, "The dog ran. A dog!", cur.Chapters[2].Content)
	assert.Greater(t, cur.UpdatedAt, before.UpdatedAt)

	s.Flush()
	stored, err := st.GetStory("s1")
	require.NoError(t, err)
	assert.Equal(t, "The dog sat.", stored.Chapters[0].Content)

	// The replaced term is gone from every chapter.
	matches, err := s.SearchGlobal("cat", Options{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	// No matches means no write and no clock bump.
	res, err = s.ReplaceGlobal("zebra", "horse", Options{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalMatches)
	assert.Same(t, cur, s.Current())
}

func TestDeleteCascades(t *testing.T) {
	s, st := newTestSession(t)
	openTestStory(t, s)

	require.NoError(t, st.PutChat(&store.ChatSession{StoryID: "s1", Messages: []store.Message{{Author: store.AuthorUser, Text: "hi"}}}))
	_, err := s.CreateSnapshot("ch1", "")
	require.NoError(t, err)
	require.NoError(t, s.RecordExport())

	require.NoError(t, s.Delete())
	assert.Nil(t, s.Current())

	story, err := st.GetStory("s1")
	require.NoError(t, err)
	assert.Nil(t, story)
	chat, err := st.GetChat("s1")
	require.NoError(t, err)
	assert.Nil(t, chat)
	backup, err := st.GetBackup("s1")
	require.NoError(t, err)
	assert.Nil(t, backup)
	versions, err := st.ListChapterVersions("ch1")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestBackupStatus(t *testing.T) {
	s, _ := newTestSession(t)
	openTestStory(t, s)

	st, err := s.BackupStatus()
	require.NoError(t, err)
	assert.False(t, st.EverExported)
	assert.True(t, st.Stale)
	assert.Equal(t, 8, st.WordsSince)

	require.NoError(t, s.RecordExport())
	st, err = s.BackupStatus()
	require.NoError(t, err)
	assert.True(t, st.EverExported)
	assert.False(t, st.Stale)
	assert.Zero(t, st.WordsSince)
}
