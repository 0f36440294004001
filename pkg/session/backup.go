package session

import (
	"fmt"
	"time"

	"github.com/fablecraft/gofable/internal/store"
)

// backupDriftThreshold is how many words the manuscript may grow past its
// last export before we start nagging.
const backupDriftThreshold = 500

// BackupStatus describes how stale the last export of the current story is.
type BackupStatus struct {
	EverExported bool  `json:"everExported"`
	LastExportAt int64 `json:"lastExportAt"`
	WordsSince   int   `json:"wordsSince"`
	Stale        bool  `json:"stale"`
}

// BackupStatus compares the current word count against the last recorded
// export. A story never exported counts as stale once it has any prose.
func (s *Session) BackupStatus() (BackupStatus, error) {
	s.mu.Lock()
	story := s.current
	s.mu.Unlock()

	var st BackupStatus
	if story == nil {
		return st, ErrNoStory
	}
	words := story.WordCount()

	meta, err := s.store.GetBackup(story.ID)
	if err != nil {
		return st, fmt.Errorf("failed to read backup metadata: %w", err)
	}
	if meta == nil {
		st.WordsSince = words
		st.Stale = words > 0
		return st, nil
	}

	st.EverExported = true
	st.LastExportAt = meta.LastExportAt
	st.WordsSince = words - meta.WordsAtExport
	if st.WordsSince < 0 {
		st.WordsSince = 0
	}
	st.Stale = st.WordsSince >= backupDriftThreshold
	return st, nil
}

// RecordExport marks the current story as freshly backed up.
func (s *Session) RecordExport() error {
	s.mu.Lock()
	story := s.current
	s.mu.Unlock()

	if story == nil {
		return ErrNoStory
	}
	return s.store.PutBackup(&store.BackupMetadata{
		StoryID:       story.ID,
		WordsAtExport: story.WordCount(),
		LastExportAt:  time.Now().UnixMilli(),
	})
}
