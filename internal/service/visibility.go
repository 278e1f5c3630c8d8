package service

import (
	"batepapo/backend/internal/models"

	"github.com/samber/lo"
)

// IsVisibleTo reports whether reader may see m. Messages addressed to
// everyone and public messages are visible to all; private messages only to
// their author and recipient.
func IsVisibleTo(m models.Message, reader string) bool {
	switch {
	case m.To == models.Everyone:
		return true
	case m.Type == models.TypeMessage:
		return true
	case m.Type == models.TypePrivate:
		return m.From == reader || m.To == reader
	default:
		return false
	}
}

// VisibleTo projects the message log onto what reader may see, keeping log
// order. A positive limit keeps only the most recent limit entries.
func VisibleTo(messages []models.Message, reader string, limit int) []models.Message {
	visible := lo.Filter(messages, func(m models.Message, _ int) bool {
		return IsVisibleTo(m, reader)
	})
	if limit > 0 && len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return visible
}
