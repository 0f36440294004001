// Lore vector index backed by sqlite-vec. The vec0 virtual table lives outside
// the versioned schema: it is a derived index rebuilt from embeddings on
// demand, so it is created lazily and never migrated.
package store

import (
	"encoding/json"
	"fmt"
)

// DefaultEmbeddingDim matches the embedding model used by the generation
// client.
const DefaultEmbeddingDim = 768

// EnsureVectorIndex creates the lore vector table if it does not exist yet.
func (s *SQLiteStore) EnsureVectorIndex(dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS lore_vectors USING vec0(
			entry_id TEXT PRIMARY KEY,
			story_id TEXT PARTITION KEY,
			embedding FLOAT[%d]
		)
	`, dim))
	if err != nil {
		return fmt.Errorf("failed to create lore vector index: %w", err)
	}
	return nil
}

// UpsertLoreVector stores the embedding for one lore entry. Vectors are passed
// to vec0 as JSON arrays.
func (s *SQLiteStore) UpsertLoreVector(storyID, entryID string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	// vec0 tables reject ON CONFLICT upserts; delete-then-insert instead.
	if _, err := s.db.Exec(`DELETE FROM lore_vectors WHERE entry_id = ?`, entryID); err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO lore_vectors (entry_id, story_id, embedding) VALUES (?, ?, ?)
	`, entryID, storyID, string(vec))
	return err
}

// SimilarLore returns the k lore entries of a story closest to the given
// embedding, nearest first.
func (s *SQLiteStore) SimilarLore(storyID string, embedding []float32, k int) ([]LoreMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 5
	}
	vec, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT entry_id, distance
		FROM lore_vectors
		WHERE embedding MATCH ? AND story_id = ? AND k = ?
		ORDER BY distance
	`, string(vec), storyID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []LoreMatch
	for rows.Next() {
		var m LoreMatch
		if err := rows.Scan(&m.EntryID, &m.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteLoreVectors drops all vectors belonging to a story.
func (s *SQLiteStore) DeleteLoreVectors(storyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM lore_vectors WHERE story_id = ?`, storyID)
	if err != nil {
		// The index may simply not have been created yet.
		var exists int
		if scanErr := s.db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE name = 'lore_vectors'`,
		).Scan(&exists); scanErr == nil && exists == 0 {
			return nil
		}
	}
	return err
}
