package domain

import "time"

// A single positioning fix emitted by a location source. Ephemeral: consumed
// by the tracking controller as it arrives and never persisted.
type LocationSample struct {
	Coordinate Coordinate
	Timestamp  time.Time
}
