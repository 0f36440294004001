package store

import "testing"

func TestLoreVectorIndex(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Deleting before the index exists is a no-op.
	if err := s.DeleteLoreVectors("s1"); err != nil {
		t.Fatalf("DeleteLoreVectors on missing index failed: %v", err)
	}

	if err := s.EnsureVectorIndex(3); err != nil {
		t.Fatalf("EnsureVectorIndex failed: %v", err)
	}
	// Idempotent.
	if err := s.EnsureVectorIndex(3); err != nil {
		t.Fatalf("EnsureVectorIndex second call failed: %v", err)
	}

	vectors := map[string][]float32{
		"e1": {1, 0, 0},
		"e2": {0, 1, 0},
		"e3": {0.9, 0.1, 0},
	}
	for id, v := range vectors {
		if err := s.UpsertLoreVector("s1", id, v); err != nil {
			t.Fatalf("UpsertLoreVector(%s) failed: %v", id, err)
		}
	}
	// A vector for another story must not appear in s1 results.
	if err := s.UpsertLoreVector("s2", "other", []float32{1, 0, 0}); err != nil {
		t.Fatalf("UpsertLoreVector(other) failed: %v", err)
	}

	matches, err := s.SimilarLore("s1", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("SimilarLore failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].EntryID != "e1" {
		t.Errorf("Expected e1 nearest, got %s", matches[0].EntryID)
	}
	if matches[1].EntryID != "e3" {
		t.Errorf("Expected e3 second, got %s", matches[1].EntryID)
	}

	// Upsert replaces, not duplicates.
	if err := s.UpsertLoreVector("s1", "e1", []float32{0, 0, 1}); err != nil {
		t.Fatalf("UpsertLoreVector replace failed: %v", err)
	}
	matches, err = s.SimilarLore("s1", []float32{0, 0, 1}, 1)
	if err != nil {
		t.Fatalf("SimilarLore after replace failed: %v", err)
	}
	if len(matches) != 1 || matches[0].EntryID != "e1" {
		t.Errorf("Replace did not take effect: %+v", matches)
	}

	if err := s.DeleteLoreVectors("s1"); err != nil {
		t.Fatalf("DeleteLoreVectors failed: %v", err)
	}
	matches, err = s.SimilarLore("s1", []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("SimilarLore after delete failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no matches after delete, got %d", len(matches))
	}
}
