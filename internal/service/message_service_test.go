package service

import (
	"context"
	"testing"
	"time"

	"batepapo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_JoinAndPostScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Ana")

	posted := f.post(t, "Ana", models.Everyone, "oi", models.TypeMessage)
	assert.NotEmpty(t, posted.ID)
	assert.Equal(t, "Ana", posted.From)
	assert.Equal(t, "12:00:00", posted.Time)

	visible, err := f.messages.List(ctx, "Ana", 0)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, models.TypeStatus, visible[0].Type)
	assert.Equal(t, models.ArrivalText, visible[0].Text)
	assert.Equal(t, "oi", visible[1].Text)
	assert.Equal(t, posted.ID, visible[1].ID)
}

func TestMessageService_PostSanitizesFields(t *testing.T) {
	f := newFixture(t)
	f.join(t, "Ana")

	posted, err := f.messages.Post(context.Background(), " Ana ", MessageInput{
		To:   " <b>Todos</b>",
		Text: "<i>ola</i> ",
		Type: " message",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", posted.From)
	assert.Equal(t, models.Everyone, posted.To)
	assert.Equal(t, "ola", posted.Text)
	assert.Equal(t, models.TypeMessage, posted.Type)
}

func TestMessageService_PlainTextRoundTrips(t *testing.T) {
	f := newFixture(t)
	f.join(t, "Ana")
	f.post(t, "Ana", models.Everyone, "I'm here & 1 < 2", models.TypeMessage)

	latest, err := f.messages.List(context.Background(), "Ana", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "I'm here & 1 < 2", latest[0].Text)
}

func TestMessageService_PostRequiresPresence(t *testing.T) {
	f := newFixture(t)

	_, err := f.messages.Post(context.Background(), "Ghost", MessageInput{To: models.Everyone, Text: "oi", Type: "message"})
	assert.ErrorIs(t, err, ErrNotPresent)

	all, err := f.store.Messages.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMessageService_PostValidation(t *testing.T) {
	f := newFixture(t)
	f.join(t, "Ana")

	tests := []struct {
		name   string
		author string
		in     MessageInput
		fields []string
	}{
		{
			name:   "status type is reserved",
			author: "Ana",
			in:     MessageInput{To: models.Everyone, Text: "oi", Type: "status"},
			fields: []string{"type"},
		},
		{
			name:   "unknown type",
			author: "Ana",
			in:     MessageInput{To: models.Everyone, Text: "oi", Type: "shout"},
			fields: []string{"type"},
		},
		{
			name:   "empty text and recipient",
			author: "Ana",
			in:     MessageInput{To: " ", Text: "<b></b>", Type: "message"},
			fields: []string{"to", "text"},
		},
		{
			name:   "missing identity",
			author: "",
			in:     MessageInput{To: models.Everyone, Text: "oi", Type: "message"},
			fields: []string{"User"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Post(context.Background(), tt.author, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			got := make([]string, 0, len(verr.Fields))
			for _, fe := range verr.Fields {
				got = append(got, fe.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestMessageService_PrivateVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		f.join(t, name)
	}
	f.post(t, "A", "B", "segredo", models.TypePrivate)

	for reader, sees := range map[string]bool{"A": true, "B": true, "C": false, "": false} {
		visible, err := f.messages.List(ctx, reader, 0)
		require.NoError(t, err)
		assert.Equal(t, sees, contains(texts(visible), "segredo"), "reader %q", reader)
	}
}

func TestMessageService_ListLimitKeepsMostRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "A")
	f.join(t, "B")
	f.join(t, "C")

	// Three arrivals plus m1..m5 are visible to B; the private one is not.
	for _, text := range []string{"m1", "m2", "m3", "m4"} {
		f.post(t, "A", models.Everyone, text, models.TypeMessage)
	}
	f.post(t, "A", "C", "hidden", models.TypePrivate)
	f.post(t, "A", models.Everyone, "m5", models.TypeMessage)

	visible, err := f.messages.List(ctx, "B", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m5"}, texts(visible))

	visible, err = f.messages.List(ctx, "B", 100)
	require.NoError(t, err)
	assert.Len(t, visible, 8)

	visible, err = f.messages.List(ctx, "C", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"hidden", "m5"}, texts(visible))
}

func TestMessageService_EditByAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Ana")
	f.join(t, "Bia")
	original := f.post(t, "Ana", models.Everyone, "oi", models.TypeMessage)

	f.clock.Advance(time.Minute)
	edited, err := f.messages.Edit(ctx, original.ID, "Ana", MessageInput{To: "Bia", Text: "oi Bia", Type: "private_message"})
	require.NoError(t, err)
	assert.Equal(t, original.ID, edited.ID)
	assert.Equal(t, "Ana", edited.From)
	assert.Equal(t, original.Time, edited.Time)

	stored, err := f.messages.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bia", stored.To)
	assert.Equal(t, "oi Bia", stored.Text)
	assert.Equal(t, models.TypePrivate, stored.Type)
	assert.Equal(t, "12:00:00", stored.Time)
}

func TestMessageService_EditAndDeleteRequireAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Ana")
	f.join(t, "Bia")
	original := f.post(t, "Ana", models.Everyone, "oi", models.TypeMessage)

	_, err := f.messages.Edit(ctx, original.ID, "Bia", MessageInput{To: models.Everyone, Text: "hack", Type: "message"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.messages.Delete(ctx, original.ID, "Bia"), ErrForbidden)
	assert.ErrorIs(t, f.messages.Delete(ctx, original.ID, ""), ErrForbidden)

	stored, err := f.messages.Get(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, *original, *stored)
}

func TestMessageService_StatusMessagesAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Ana")

	all, err := f.store.Messages.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	arrival := all[0]

	_, err = f.messages.Edit(ctx, arrival.ID, "Ana", MessageInput{To: models.Everyone, Text: "fake", Type: "message"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.messages.Delete(ctx, arrival.ID, "Ana"), ErrForbidden)
}

func TestMessageService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Ana")
	posted := f.post(t, "Ana", models.Everyone, "oi", models.TypeMessage)

	require.NoError(t, f.messages.Delete(ctx, posted.ID, "Ana"))
	_, err := f.messages.Get(ctx, posted.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	assert.ErrorIs(t, f.messages.Delete(ctx, posted.ID, "Ana"), ErrMessageNotFound)
	_, err = f.messages.Edit(ctx, "999", "Ana", MessageInput{To: models.Everyone, Text: "x", Type: "message"})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageService_AuthorMayEditAfterLeaving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.join(t, "Ana")
	posted := f.post(t, "Ana", models.Everyone, "oi", models.TypeMessage)
	require.NoError(t, f.store.Participants.Delete(ctx, "Ana"))

	_, err := f.messages.Edit(ctx, posted.ID, "Ana", MessageInput{To: models.Everyone, Text: "tchau", Type: "message"})
	assert.NoError(t, err)
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
