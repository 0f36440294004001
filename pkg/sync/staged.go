package sync

import (
	"context"

	"github.com/fablecraft/gofable/internal/store"
)

// StagedRemote adapts the engine to hosts where another layer owns the
// network, such as the browser, where the Firebase JS SDK holds the user's
// auth session. The caller supplies the fetched remote documents up front;
// records the engine decides to upload are staged on the struct for the
// caller to commit afterwards.
type StagedRemote struct {
	Stories   []map[string]any
	Universes []map[string]any

	UploadStories   []*store.Story
	UploadUniverses []*store.Universe
}

var _ Remote = (*StagedRemote)(nil)

func (r *StagedRemote) FetchStories(context.Context, string) ([]map[string]any, error) {
	return r.Stories, nil
}

func (r *StagedRemote) FetchUniverses(context.Context, string) ([]map[string]any, error) {
	return r.Universes, nil
}

func (r *StagedRemote) PutStories(_ context.Context, _ string, stories []*store.Story) error {
	r.UploadStories = append(r.UploadStories, stories...)
	return nil
}

func (r *StagedRemote) PutUniverses(_ context.Context, _ string, universes []*store.Universe) error {
	r.UploadUniverses = append(r.UploadUniverses, universes...)
	return nil
}
