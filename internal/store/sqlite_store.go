// SQLite-backed implementation of Storer, using ncruces/go-sqlite3/driver
// which provides a database/sql interface and works both natively and in WASM.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed data store.
// Thread-safe for concurrent callers.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// migrations holds one additive DDL step per schema version. The store's
// version is tracked in PRAGMA user_version; steps beyond the current version
// are applied in order on open. Steps never alter earlier collections.
var migrations = []string{
	// Version 1: the original four collections.
	`
CREATE TABLE IF NOT EXISTS stories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stories_title ON stories(title);
CREATE INDEX IF NOT EXISTS idx_stories_updated ON stories(updated_at);

CREATE TABLE IF NOT EXISTS universes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_universes_name ON universes(name);
CREATE INDEX IF NOT EXISTS idx_universes_updated ON universes(updated_at);

CREATE TABLE IF NOT EXISTS chats (
    story_id TEXT PRIMARY KEY,
    data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backups (
    story_id TEXT PRIMARY KEY,
    words_at_export INTEGER NOT NULL DEFAULT 0,
    last_export_at INTEGER NOT NULL DEFAULT 0
);
`,
	// Version 2: chapter version snapshots.
	`
CREATE TABLE IF NOT EXISTS chapter_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    story_id TEXT NOT NULL,
    chapter_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    label TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_versions_chapter ON chapter_versions(chapter_id);
CREATE INDEX IF NOT EXISTS idx_versions_story ON chapter_versions(story_id);
CREATE INDEX IF NOT EXISTS idx_versions_created ON chapter_versions(created_at);
`,
}

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("failed to apply schema version %d: %w", v+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			return fmt.Errorf("failed to record schema version %d: %w", v+1, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Stories
// =============================================================================

// UpsertStory writes a story as a whole record, keyed by id. The indexed
// columns are derived from the record on every write.
func (s *SQLiteStore) UpsertStory(story *Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertStoryExec(s.db, story)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertStoryExec(db execer, story *Story) error {
	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO stories (id, title, updated_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, story.ID, story.Title, story.UpdatedAt, string(data))
	return err
}

// BulkUpsertStories writes a batch of stories inside one transaction.
// Used by the sync download pass.
func (s *SQLiteStore) BulkUpsertStories(stories []*Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, story := range stories {
		if err := upsertStoryExec(tx, story); err != nil {
			tx.Rollback()
			return fmt.Errorf("bulk upsert story %s: %w", story.ID, err)
		}
	}
	return tx.Commit()
}

// GetStory retrieves a story by id. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetStory(id string) (*Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT data FROM stories WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var story Story
	if err := json.Unmarshal([]byte(data), &story); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", id, err)
	}
	return &story, nil
}

// ListStories returns all stories, most recently updated first.
func (s *SQLiteStore) ListStories() ([]*Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT data FROM stories ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []*Story
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var story Story
		if err := json.Unmarshal([]byte(data), &story); err != nil {
			return nil, fmt.Errorf("failed to decode story: %w", err)
		}
		stories = append(stories, &story)
	}
	return stories, rows.Err()
}

// DeleteStoryCascade removes a story together with its chat session, backup
// record and chapter versions in a single transaction. Either all four
// collections are updated or none are.
func (s *SQLiteStore) DeleteStoryCascade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range []struct {
		query string
		arg   string
	}{
		{"DELETE FROM chapter_versions WHERE story_id = ?", id},
		{"DELETE FROM chats WHERE story_id = ?", id},
		{"DELETE FROM backups WHERE story_id = ?", id},
		{"DELETE FROM stories WHERE id = ?", id},
	} {
		if _, err := tx.Exec(stmt.query, stmt.arg); err != nil {
			tx.Rollback()
			return fmt.Errorf("cascade delete story %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountStories returns the number of stories.
func (s *SQLiteStore) CountStories() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM stories").Scan(&count)
	return count, err
}

// =============================================================================
// Universes
// =============================================================================

// UpsertUniverse writes a universe as a whole record, keyed by id.
func (s *SQLiteStore) UpsertUniverse(u *Universe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertUniverseExec(s.db, u)
}

func upsertUniverseExec(db execer, u *Universe) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal universe: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO universes (id, name, updated_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at,
			data = excluded.data
	`, u.ID, u.Name, u.UpdatedAt, string(data))
	return err
}

// BulkUpsertUniverses writes a batch of universes inside one transaction.
func (s *SQLiteStore) BulkUpsertUniverses(us []*Universe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, u := range us {
		if err := upsertUniverseExec(tx, u); err != nil {
			tx.Rollback()
			return fmt.Errorf("bulk upsert universe %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// GetUniverse retrieves a universe by id. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetUniverse(id string) (*Universe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT data FROM universes WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var u Universe
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("failed to decode universe %s: %w", id, err)
	}
	return &u, nil
}

// ListUniverses returns all universes, most recently updated first.
func (s *SQLiteStore) ListUniverses() ([]*Universe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT data FROM universes ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var us []*Universe
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var u Universe
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return nil, fmt.Errorf("failed to decode universe: %w", err)
		}
		us = append(us, &u)
	}
	return us, rows.Err()
}

// DeleteUniverse removes a universe by id. Stories that copied its lore keep
// their copies; there is nothing to cascade.
func (s *SQLiteStore) DeleteUniverse(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM universes WHERE id = ?", id)
	return err
}

// =============================================================================
// Chat sessions
// =============================================================================

// GetChat retrieves the chat session for a story. Returns (nil, nil) when the
// story has no transcript yet.
func (s *SQLiteStore) GetChat(storyID string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT data FROM chats WHERE story_id = ?`, storyID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chat ChatSession
	if err := json.Unmarshal([]byte(data), &chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat %s: %w", storyID, err)
	}
	return &chat, nil
}

// PutChat writes a chat session as a whole record, keyed by story id.
func (s *SQLiteStore) PutChat(chat *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO chats (story_id, data) VALUES (?, ?)
		ON CONFLICT(story_id) DO UPDATE SET data = excluded.data
	`, chat.StoryID, string(data))
	return err
}

// =============================================================================
// Backup bookkeeping
// =============================================================================

// GetBackup retrieves the backup record for a story. Returns (nil, nil) when
// the story has never been exported.
func (s *SQLiteStore) GetBackup(storyID string) (*BackupMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b BackupMetadata
	err := s.db.QueryRow(`
		SELECT story_id, words_at_export, last_export_at FROM backups WHERE story_id = ?
	`, storyID).Scan(&b.StoryID, &b.WordsAtExport, &b.LastExportAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// PutBackup writes the backup record for a story.
func (s *SQLiteStore) PutBackup(b *BackupMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO backups (story_id, words_at_export, last_export_at)
		VALUES (?, ?, ?)
		ON CONFLICT(story_id) DO UPDATE SET
			words_at_export = excluded.words_at_export,
			last_export_at = excluded.last_export_at
	`, b.StoryID, b.WordsAtExport, b.LastExportAt)
	return err
}

// =============================================================================
// Chapter versions
// =============================================================================

// AddChapterVersion appends a snapshot row and fills in its assigned id.
func (s *SQLiteStore) AddChapterVersion(v *ChapterVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO chapter_versions (story_id, chapter_id, title, content, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.StoryID, v.ChapterID, v.Title, v.Content, v.Label, v.CreatedAt)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

// GetChapterVersion retrieves a snapshot by id. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetChapterVersion(id int64) (*ChapterVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v ChapterVersion
	var label sql.NullString
	err := s.db.QueryRow(`
		SELECT id, story_id, chapter_id, title, content, label, created_at
		FROM chapter_versions WHERE id = ?
	`, id).Scan(&v.ID, &v.StoryID, &v.ChapterID, &v.Title, &v.Content, &label, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if label.Valid {
		v.Label = label.String
	}
	return &v, nil
}

// ListChapterVersions returns all snapshots of a chapter, newest first.
func (s *SQLiteStore) ListChapterVersions(chapterID string) ([]*ChapterVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, story_id, chapter_id, title, content, label, created_at
		FROM chapter_versions WHERE chapter_id = ?
		ORDER BY created_at DESC, id DESC
	`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*ChapterVersion
	for rows.Next() {
		var v ChapterVersion
		var label sql.NullString
		if err := rows.Scan(&v.ID, &v.StoryID, &v.ChapterID, &v.Title, &v.Content, &label, &v.CreatedAt); err != nil {
			return nil, err
		}
		if label.Valid {
			v.Label = label.String
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

// DeleteChapterVersion removes a single snapshot by id.
func (s *SQLiteStore) DeleteChapterVersion(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM chapter_versions WHERE id = ?", id)
	return err
}

// DeleteChapterVersions removes all snapshots of a chapter. Called when the
// parent chapter is deleted.
func (s *SQLiteStore) DeleteChapterVersions(chapterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM chapter_versions WHERE chapter_id = ?", chapterID)
	return err
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
