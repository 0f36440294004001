package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecraft/gofable/internal/store"
)

type fakeStreamer struct {
	chunks []string
	err    error

	gotSystem  string
	gotHistory []store.Message
}

func (f *fakeStreamer) StreamChat(_ context.Context, system string, history []store.Message, onChunk func(string)) error {
	f.gotSystem = system
	f.gotHistory = history
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.err
}

func newTestService(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, zerolog.Nop()), st
}

func TestHistoryCreatesEmptySession(t *testing.T) {
	svc, _ := newTestService(t)

	sess, err := svc.History("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.StoryID)
	assert.Empty(t, sess.Messages)
}

func TestAppendAndClear(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AppendUser("s1", "What if the heist fails?")
	require.NoError(t, err)
	sess, err := svc.AppendAI("s1", "Then the crew splinters.")
	require.NoError(t, err)

	require.Len(t, sess.Messages, 2)
	assert.Equal(t, store.AuthorUser, sess.Messages[0].Author)
	assert.Equal(t, store.AuthorAI, sess.Messages[1].Author)
	assert.NotZero(t, sess.Messages[0].Timestamp)

	require.NoError(t, svc.Clear("s1"))
	sess, err = svc.History("s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestStreamReply(t *testing.T) {
	svc, _ := newTestService(t)
	story := &store.Story{
		ID:    "s1",
		Title: "The Heist",
		Characters: []store.Character{
			{Name: "Mira", Role: store.RoleProtagonist},
		},
	}
	streamer := &fakeStreamer{chunks: []string{"Then ", "the crew ", "splinters."}}

	var streamed string
	reply, err := svc.StreamReply(context.Background(), streamer, story, "What if the heist fails?", func(c string) {
		streamed += c
	})
	require.NoError(t, err)
	assert.Equal(t, "Then the crew splinters.", reply)
	assert.Equal(t, reply, streamed)

	assert.Contains(t, streamer.gotSystem, "The Heist")
	assert.Contains(t, streamer.gotSystem, "Mira")
	// The user turn is part of the history handed to the model.
	require.NotEmpty(t, streamer.gotHistory)
	assert.Equal(t, "What if the heist fails?", streamer.gotHistory[len(streamer.gotHistory)-1].Text)

	sess, err := svc.History("s1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "Then the crew splinters.", sess.Messages[1].Text)
}

func TestStreamReplyError(t *testing.T) {
	svc, _ := newTestService(t)
	story := &store.Story{ID: "s1", Title: "The Heist"}
	streamer := &fakeStreamer{err: errors.New("upstream closed")}

	_, err := svc.StreamReply(context.Background(), streamer, story, "Hello?", nil)
	assert.Error(t, err)

	// The user turn survives even when the reply fails.
	sess, err := svc.History("s1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, store.AuthorUser, sess.Messages[0].Author)
}
