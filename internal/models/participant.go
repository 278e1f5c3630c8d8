package models

import "time"

// Participant is a display name currently present in the room
type Participant struct {
	Name string `json:"name"`
	// LastStatus is the epoch millisecond of the last join or heartbeat
	LastStatus int64 `json:"lastStatus"`
}

// NewParticipant creates a participant seen at the given instant
func NewParticipant(name string, at time.Time) *Participant {
	return &Participant{Name: name, LastStatus: at.UnixMilli()}
}

// LastSeen returns LastStatus as a time
func (p Participant) LastSeen() time.Time {
	return time.UnixMilli(p.LastStatus)
}
