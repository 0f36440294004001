// Package chat manages the per-story brainstorming transcript. Each story has
// exactly one session, created lazily on first access.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fablecraft/gofable/internal/store"
)

// Streamer produces an AI reply incrementally. The generation client
// implements it.
type Streamer interface {
	StreamChat(ctx context.Context, system string, history []store.Message, onChunk func(string)) error
}

// Service manages chat sessions and their persistence.
type Service struct {
	store store.Storer
	log   zerolog.Logger
}

func NewService(s store.Storer, log zerolog.Logger) *Service {
	return &Service{
		store: s,
		log:   log.With().Str("component", "chat").Logger(),
	}
}

// History returns the story's transcript, creating an empty session if none
// exists yet.
func (s *Service) History(storyID string) (*store.ChatSession, error) {
	sess, err := s.store.GetChat(storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat for story %s: %w", storyID, err)
	}
	if sess == nil {
		sess = &store.ChatSession{StoryID: storyID, Messages: []store.Message{}}
	}
	return sess, nil
}

// AppendUser records a user turn.
func (s *Service) AppendUser(storyID, text string) (*store.ChatSession, error) {
	return s.append(storyID, store.AuthorUser, text)
}

// AppendAI records an AI turn.
func (s *Service) AppendAI(storyID, text string) (*store.ChatSession, error) {
	return s.append(storyID, store.AuthorAI, text)
}

func (s *Service) append(storyID, author, text string) (*store.ChatSession, error) {
	sess, err := s.History(storyID)
	if err != nil {
		return nil, err
	}
	sess.Messages = append(sess.Messages, store.Message{
		Author:    author,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	})
	if err := s.store.PutChat(sess); err != nil {
		return nil, fmt.Errorf("failed to persist chat for story %s: %w", storyID, err)
	}
	return sess, nil
}

// Clear wipes the transcript but keeps the session row.
func (s *Service) Clear(storyID string) error {
	return s.store.PutChat(&store.ChatSession{StoryID: storyID, Messages: []store.Message{}})
}

// StreamReply records the user's message, streams an AI reply chunk by chunk
// through onChunk, and persists the full reply once the stream ends. The
// returned string is the complete reply.
func (s *Service) StreamReply(ctx context.Context, streamer Streamer, story *store.Story, userText string, onChunk func(string)) (string, error) {
	sess, err := s.AppendUser(story.ID, userText)
	if err != nil {
		return "", err
	}

	var reply strings.Builder
	err = streamer.StreamChat(ctx, brainstormSystemPrompt(story), sess.Messages, func(chunk string) {
		reply.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	})
	if err != nil {
		return "", fmt.Errorf("chat stream failed: %w", err)
	}

	if _, err := s.AppendAI(story.ID, reply.String()); err != nil {
		// The reply already reached the caller; losing the persisted copy is
		// worth logging but not worth failing the turn.
		s.log.Error().Err(err).Str("story_id", story.ID).Msg("failed to persist AI reply")
	}
	return reply.String(), nil
}

// brainstormSystemPrompt frames the assistant as a co-writer with the story's
// encyclopedia in view.
func brainstormSystemPrompt(story *store.Story) string {
	var b strings.Builder
	b.WriteString("You are a creative brainstorming partner helping develop the story ")
	fmt.Fprintf(&b, "%q.\n", story.Title)
	if story.Setting != "" {
		fmt.Fprintf(&b, "Setting: %s\n", story.Setting)
	}
	if len(story.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(story.Genres, ", "))
	}
	if len(story.Characters) > 0 {
		b.WriteString("Characters:\n")
		for _, c := range story.Characters {
			fmt.Fprintf(&b, "- %s (%s)", c.Name, c.Role)
			if c.Description != "" {
				fmt.Fprintf(&b, ": %s", c.Description)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("Answer in the story's language. Be concrete and build on what the writer gives you.")
	return b.String()
}
