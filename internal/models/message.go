package models

import (
	"time"
)

// Everyone is the audience value addressing every participant in the room
const Everyone = "Todos"

// TimeLayout formats a message creation time as wall-clock time of day
const TimeLayout = "15:04:05"

// Status texts generated by the presence subsystem
const (
	ArrivalText   = "entra na sala..."
	DepartureText = "sai da sala..."
)

// MessageType identifies the audience scope of a message
type MessageType string

const (
	// TypeStatus is a system-generated join/leave notice
	TypeStatus MessageType = "status"
	// TypeMessage is a public message visible to every reader
	TypeMessage MessageType = "message"
	// TypePrivate is visible only to its author and its recipient
	TypePrivate MessageType = "private_message"
)

// IsUserType reports whether participants may author messages of this type
func (t MessageType) IsUserType() bool {
	return t == TypeMessage || t == TypePrivate
}

// Message represents a chat message
type Message struct {
	ID   string      `json:"id"`
	Seq  int64       `json:"-"`
	From string      `json:"from"`
	To   string      `json:"to"`
	Text string      `json:"text"`
	Type MessageType `json:"type"`
	Time string      `json:"time"`
}

// NewStatusMessage builds a presence notice addressed to everyone
func NewStatusMessage(name, text string, at time.Time) *Message {
	return &Message{
		From: name,
		To:   Everyone,
		Text: text,
		Type: TypeStatus,
		Time: at.Format(TimeLayout),
	}
}

// IsStatus reports whether the message was generated by the system
func (m *Message) IsStatus() bool {
	return m.Type == TypeStatus
}
