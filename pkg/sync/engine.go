// Package sync reconciles the local store with a per-user remote copy using
// last-write-wins on the updatedAt logical clock. Each run makes an upload
// pass then a download pass per collection; a record missing a timestamp
// counts as 0 and equal timestamps leave both sides untouched.
package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fablecraft/gofable/internal/migrate"
	"github.com/fablecraft/gofable/internal/store"
)

// Remote is the cloud side of the sync. Documents come back as loosely-typed
// maps and run through migration before touching the local store.
type Remote interface {
	FetchStories(ctx context.Context, userID string) ([]map[string]any, error)
	FetchUniverses(ctx context.Context, userID string) ([]map[string]any, error)
	PutStories(ctx context.Context, userID string, stories []*store.Story) error
	PutUniverses(ctx context.Context, userID string, universes []*store.Universe) error
}

// Result reports what one sync run moved. Counts reflect work completed
// before any error: a failed run does not roll back earlier writes.
type Result struct {
	Success             bool   `json:"success"`
	Error               string `json:"error,omitempty"`
	StoriesUploaded     int    `json:"storiesUploaded"`
	StoriesDownloaded   int    `json:"storiesDownloaded"`
	UniversesUploaded   int    `json:"universesUploaded"`
	UniversesDownloaded int    `json:"universesDownloaded"`
}

// Engine runs bidirectional sync between a local store and a Remote.
type Engine struct {
	local  store.Storer
	remote Remote
	log    zerolog.Logger
}

func NewEngine(local store.Storer, remote Remote, log zerolog.Logger) *Engine {
	return &Engine{
		local:  local,
		remote: remote,
		log:    log.With().Str("component", "sync").Logger(),
	}
}

// Run syncs stories then universes for one user. It stops at the first error
// and reports it in the Result; whatever completed stays applied.
func (e *Engine) Run(ctx context.Context, userID string) Result {
	var res Result

	fail := func(err error) Result {
		res.Error = err.Error()
		e.log.Error().Err(err).Str("user_id", userID).Msg("sync failed")
		return res
	}

	if err := e.syncStories(ctx, userID, &res); err != nil {
		return fail(err)
	}
	if err := e.syncUniverses(ctx, userID, &res); err != nil {
		return fail(err)
	}

	res.Success = true
	e.log.Info().
		Str("user_id", userID).
		Int("stories_up", res.StoriesUploaded).
		Int("stories_down", res.StoriesDownloaded).
		Int("universes_up", res.UniversesUploaded).
		Int("universes_down", res.UniversesDownloaded).
		Msg("sync complete")
	return res
}

func (e *Engine) syncStories(ctx context.Context, userID string, res *Result) error {
	remoteDocs, err := e.remote.FetchStories(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch remote stories: %w", err)
	}
	local, err := e.local.ListStories()
	if err != nil {
		return fmt.Errorf("list local stories: %w", err)
	}

	// Migrate each document exactly once and reuse the result for both the
	// clock comparison and the download, so a doc that needed a generated id
	// is staged under the same id it was compared with.
	remoteByID := map[string]*store.Story{}
	for _, doc := range remoteDocs {
		s := migrate.Story(doc)
		remoteByID[s.ID] = s
	}
	localClock := map[string]int64{}
	for _, s := range local {
		localClock[s.ID] = s.UpdatedAt
	}

	// Upload pass: local strictly newer, or unknown remotely.
	var uploads []*store.Story
	for _, s := range local {
		if r, ok := remoteByID[s.ID]; !ok || s.UpdatedAt > r.UpdatedAt {
			uploads = append(uploads, s)
		}
	}
	if len(uploads) > 0 {
		if err := e.remote.PutStories(ctx, userID, uploads); err != nil {
			return fmt.Errorf("upload stories: %w", err)
		}
		res.StoriesUploaded = len(uploads)
	}

	// Download pass: remote strictly newer, or unknown locally.
	var downloads []*store.Story
	for id, rs := range remoteByID {
		if l, ok := localClock[id]; !ok || rs.UpdatedAt > l {
			downloads = append(downloads, rs)
		}
	}
	if len(downloads) > 0 {
		if err := e.local.BulkUpsertStories(downloads); err != nil {
			return fmt.Errorf("apply downloaded stories: %w", err)
		}
		res.StoriesDownloaded = len(downloads)
	}
	return nil
}

func (e *Engine) syncUniverses(ctx context.Context, userID string, res *Result) error {
	remoteDocs, err := e.remote.FetchUniverses(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch remote universes: %w", err)
	}
	local, err := e.local.ListUniverses()
	if err != nil {
		return fmt.Errorf("list local universes: %w", err)
	}

	remoteByID := map[string]*store.Universe{}
	for _, doc := range remoteDocs {
		u := migrate.Universe(doc)
		remoteByID[u.ID] = u
	}
	localClock := map[string]int64{}
	for _, u := range local {
		localClock[u.ID] = u.UpdatedAt
	}

	var uploads []*store.Universe
	for _, u := range local {
		if r, ok := remoteByID[u.ID]; !ok || u.UpdatedAt > r.UpdatedAt {
			uploads = append(uploads, u)
		}
	}
	if len(uploads) > 0 {
		if err := e.remote.PutUniverses(ctx, userID, uploads); err != nil {
			return fmt.Errorf("upload universes: %w", err)
		}
		res.UniversesUploaded = len(uploads)
	}

	var downloads []*store.Universe
	for id, ru := range remoteByID {
		if l, ok := localClock[id]; !ok || ru.UpdatedAt > l {
			downloads = append(downloads, ru)
		}
	}
	if len(downloads) > 0 {
		if err := e.local.BulkUpsertUniverses(downloads); err != nil {
			return fmt.Errorf("apply downloaded universes: %w", err)
		}
		res.UniversesDownloaded = len(downloads)
	}
	return nil
}
