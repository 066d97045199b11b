package model

import (
	"encoding/json"
	"time"
)

// Document is a stored JSON record belonging to one content collection.
// Data holds the entity body without the server-owned metadata keys.
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`

	// Keep names data keys whose stored values an update leaves in place.
	Keep []string `json:"-"`
}
