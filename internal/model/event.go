package model

import "time"

// Event types published for external observers. Events are best-effort and
// never load-bearing.
const (
	EventWindowAdded   = "window.added"
	EventWindowEdited  = "window.edited"
	EventWindowRemoved = "window.removed"
	EventMintCompleted = "mint.completed"
)

// Event is the envelope published on the redis event channel.
type Event struct {
	Type    string      `json:"type"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload"`
}
