package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"

	"github.com/fablecraft/gofable/internal/store"
)

// firestoreBatchLimit is the platform's hard cap on writes per batch.
const firestoreBatchLimit = 500

// FirestoreRemote stores each user's data under
// users/{uid}/stories/{storyId} and users/{uid}/universes/{universeId}.
type FirestoreRemote struct {
	client *firestore.Client
}

// NewFirestoreRemote connects to the given Firebase project. Credentials come
// from the ambient environment (GOOGLE_APPLICATION_CREDENTIALS or metadata).
func NewFirestoreRemote(ctx context.Context, projectID string) (*FirestoreRemote, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firestore client: %w", err)
	}
	return &FirestoreRemote{client: client}, nil
}

func (r *FirestoreRemote) Close() error {
	return r.client.Close()
}

var _ Remote = (*FirestoreRemote)(nil)

func (r *FirestoreRemote) storyCol(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("stories")
}

func (r *FirestoreRemote) universeCol(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("universes")
}

func (r *FirestoreRemote) FetchStories(ctx context.Context, userID string) ([]map[string]any, error) {
	return fetchAll(ctx, r.storyCol(userID))
}

func (r *FirestoreRemote) FetchUniverses(ctx context.Context, userID string) ([]map[string]any, error) {
	return fetchAll(ctx, r.universeCol(userID))
}

func fetchAll(ctx context.Context, col *firestore.CollectionRef) ([]map[string]any, error) {
	var docs []map[string]any
	it := col.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		data := snap.Data()
		// The document key is the record id. Old documents written before the
		// id field existed would otherwise re-materialize under a fresh id on
		// every sync.
		if _, ok := data["id"]; !ok {
			data["id"] = snap.Ref.ID
		}
		docs = append(docs, data)
	}
	return docs, nil
}

func (r *FirestoreRemote) PutStories(ctx context.Context, userID string, stories []*store.Story) error {
	col := r.storyCol(userID)
	docs := make([]writeDoc, len(stories))
	for i, s := range stories {
		m, err := toDoc(s)
		if err != nil {
			return err
		}
		docs[i] = writeDoc{ref: col.Doc(s.ID), data: m}
	}
	return r.writeChunked(ctx, docs)
}

func (r *FirestoreRemote) PutUniverses(ctx context.Context, userID string, universes []*store.Universe) error {
	col := r.universeCol(userID)
	docs := make([]writeDoc, len(universes))
	for i, u := range universes {
		m, err := toDoc(u)
		if err != nil {
			return err
		}
		docs[i] = writeDoc{ref: col.Doc(u.ID), data: m}
	}
	return r.writeChunked(ctx, docs)
}

type writeDoc struct {
	ref  *firestore.DocumentRef
	data map[string]any
}

// writeChunked commits sets in batches below the platform limit.
func (r *FirestoreRemote) writeChunked(ctx context.Context, docs []writeDoc) error {
	for start := 0; start < len(docs); start += firestoreBatchLimit {
		end := start + firestoreBatchLimit
		if end > len(docs) {
			end = len(docs)
		}
		batch := r.client.Batch()
		for _, d := range docs[start:end] {
			batch.Set(d.ref, d.data)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("batch commit: %w", err)
		}
	}
	return nil
}

// toDoc flattens a record through its JSON form so the remote document shape
// matches local exports exactly.
func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return m, nil
}
