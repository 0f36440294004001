package session

import (
	"context"
	"fmt"

	"github.com/fablecraft/gofable/internal/store"
)

// Embedder turns text into embedding vectors. The generation client
// implements it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexLore embeds every lore entry of the current story and writes the
// vectors into the store's kNN index. Entries are embedded as "name:
// description" so short names still carry signal.
func (s *Session) IndexLore(ctx context.Context, emb Embedder) (int, error) {
	s.mu.Lock()
	story := s.current
	s.mu.Unlock()

	if story == nil {
		return 0, ErrNoStory
	}

	var ids []string
	var texts []string
	for _, cat := range story.Lore.Categories() {
		for _, e := range cat.Entries {
			ids = append(ids, e.ID)
			texts = append(texts, e.Name+": "+e.Description)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed lore entries: %w", err)
	}
	if len(vectors) != len(ids) {
		return 0, fmt.Errorf("embedding count mismatch: want %d, got %d", len(ids), len(vectors))
	}

	if err := s.store.EnsureVectorIndex(len(vectors[0])); err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := s.store.UpsertLoreVector(story.ID, id, vectors[i]); err != nil {
			return i, fmt.Errorf("failed to index lore entry %s: %w", id, err)
		}
	}
	return len(ids), nil
}

// RelatedLore finds the lore entries most similar to a piece of text,
// typically the chapter being written.
func (s *Session) RelatedLore(ctx context.Context, emb Embedder, text string, k int) ([]store.LoreEntry, error) {
	s.mu.Lock()
	story := s.current
	s.mu.Unlock()

	if story == nil {
		return nil, ErrNoStory
	}
	vectors, err := emb.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}

	matches, err := s.store.SimilarLore(story.ID, vectors[0], k)
	if err != nil {
		return nil, err
	}

	byID := map[string]store.LoreEntry{}
	for _, cat := range story.Lore.Categories() {
		for _, e := range cat.Entries {
			byID[e.ID] = e
		}
	}
	var out []store.LoreEntry
	for _, m := range matches {
		if e, ok := byID[m.EntryID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
