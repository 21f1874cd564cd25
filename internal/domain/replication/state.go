package replication

import (
	"time"

	"memorizefacts/internal/model"
)

type State string

const (
	StateIdle      State = "idle"
	StatePulling   State = "pulling"
	StatePushing   State = "pushing"
	StateCancelled State = "cancelled"
)

// Status снимок состояния цикла коллекции
type Status struct {
	Collection string       `json:"collection"`
	State      State        `json:"state"`
	LastError  string       `json:"lastError,omitempty"`
	LastSyncAt time.Time    `json:"lastSyncAt,omitempty"`
	Cursor     model.Cursor `json:"cursor"`
	Pulled     int          `json:"pulled"`
	Pushed     int          `json:"pushed"`
}
