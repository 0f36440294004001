package generate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablecraft/gofable/internal/store"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "test-key",
		Model:      "test-model",
		EmbedModel: "test-embed",
		BaseURL:    srv.URL,
	}, zerolog.Nop())
}

func TestCompleteJSONMode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	})

	out, err := c.Complete(context.Background(), "sys", "user", true)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestCompleteContentFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`))
	})

	_, err := c.Complete(context.Background(), "sys", "user", false)
	assert.ErrorIs(t, err, ErrSafetyBlocked)
}

func TestCompleteEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "sys", "user", false)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestStreamChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Once \"}}]}\n\n"))
		w.Write([]byte(": keep-alive comment\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"upon.\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	})

	var got string
	err := c.StreamChat(context.Background(), "sys", []store.Message{
		{Author: store.AuthorUser, Text: "go"},
	}, func(chunk string) { got += chunk })
	require.NoError(t, err)
	assert.Equal(t, "Once upon.", got)
}

func TestStreamChatNoChunks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("data: [DONE]\n\n"))
	})

	err := c.StreamChat(context.Background(), "sys", nil, func(string) {})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestStreamChatContentFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"content_filter\"}]}\n\n"))
	})

	err := c.StreamChat(context.Background(), "sys", nil, func(string) {})
	assert.ErrorIs(t, err, ErrSafetyBlocked)
}

func TestEmbedKeepsOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0.2]},{"index":0,"embedding":[0.1]}]}`))
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1}, vecs[0])
	assert.Equal(t, []float32{0.2}, vecs[1])
}

func TestGenerateSectionCharacters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"` +
			"```json\\n{\\\"characters\\\":[{\\\"name\\\":\\\"Vex\\\",\\\"role\\\":\\\"villain\\\"}]}\\n```" +
			`"},"finish_reason":"stop"}]}`))
	})

	story := &store.Story{Title: "T", Language: "en", Perspective: "third-person"}
	res, err := c.GenerateSection(context.Background(), story, SectionCharacters, "")
	require.NoError(t, err)
	require.Len(t, res.Characters, 1)
	assert.Equal(t, "Vex", res.Characters[0].Name)
	// Unknown roles collapse to supporting.
	assert.Equal(t, store.RoleSupporting, res.Characters[0].Role)
	assert.NotEmpty(t, res.Characters[0].ID)
}
