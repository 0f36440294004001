package migrate

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/fablecraft/gofable/internal/store"
)

// Universe upgrades a universe record into the current schema. Same contract
// as Story: pure, never fails, idempotent.
func Universe(raw map[string]any) *store.Universe {
	return &store.Universe{
		ID:          getString(raw, "id", uuid.NewString()),
		Name:        getString(raw, "name", "Untitled Universe"),
		Description: getText(raw, "description"),
		Favorite:    getBool(raw, "favorite"),
		Lore:        migrateLore(raw),
		CreatedAt:   getInt64(raw, "createdAt", 0),
		UpdatedAt:   getInt64(raw, "updatedAt", 0),
	}
}

// UniverseFromJSON decodes and migrates in one step.
func UniverseFromJSON(data []byte) *store.Universe {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = nil
	}
	return Universe(raw)
}
