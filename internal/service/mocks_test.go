package service

import (
	"context"

	"batepapo/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockParticipants struct {
	mock.Mock
}

func (m *mockParticipants) Create(ctx context.Context, participant *models.Participant) error {
	return m.Called(ctx, participant).Error(0)
}

func (m *mockParticipants) Get(ctx context.Context, name string) (*models.Participant, error) {
	args := m.Called(ctx, name)
	if p, ok := args.Get(0).(*models.Participant); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockParticipants) List(ctx context.Context) ([]models.Participant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Participant), args.Error(1)
}

func (m *mockParticipants) Touch(ctx context.Context, name string, lastStatus int64) error {
	return m.Called(ctx, name, lastStatus).Error(0)
}

func (m *mockParticipants) ListStale(ctx context.Context, cutoff int64) ([]models.Participant, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]models.Participant), args.Error(1)
}

func (m *mockParticipants) DeleteIfStale(ctx context.Context, name string, cutoff int64) (bool, error) {
	args := m.Called(ctx, name, cutoff)
	return args.Bool(0), args.Error(1)
}

func (m *mockParticipants) Delete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

type mockMessages struct {
	mock.Mock
}

func (m *mockMessages) Create(ctx context.Context, message *models.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *mockMessages) Get(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if msg, ok := args.Get(0).(*models.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessages) List(ctx context.Context) ([]models.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *mockMessages) Update(ctx context.Context, message *models.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *mockMessages) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
