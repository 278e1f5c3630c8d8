package repository

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"batepapo/backend/internal/models"

	"github.com/samber/lo"
)

// memoryDB is the shared state behind the in-memory repositories
type memoryDB struct {
	mu           sync.RWMutex
	participants map[string]models.Participant
	messages     []models.Message
	seq          int64
}

// NewMemoryStore creates a Store whose collections live in process memory
func NewMemoryStore() *Store {
	db := &memoryDB{participants: make(map[string]models.Participant)}
	return &Store{
		Participants: &MemoryParticipantRepository{db: db},
		Messages:     &MemoryMessageRepository{db: db},
		Evictor:      db,
	}
}

// MemoryParticipantRepository keeps participants in a map
type MemoryParticipantRepository struct {
	db *memoryDB
}

func (r *MemoryParticipantRepository) Create(_ context.Context, participant *models.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.participants[participant.Name]; ok {
		return ErrDuplicate
	}
	r.db.participants[participant.Name] = *participant
	return nil
}

func (r *MemoryParticipantRepository) Get(_ context.Context, name string) (*models.Participant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.participants[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryParticipantRepository) List(_ context.Context) ([]models.Participant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return lo.Values(r.db.participants), nil
}

func (r *MemoryParticipantRepository) Touch(_ context.Context, name string, lastStatus int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.participants[name]
	if !ok {
		return ErrNotFound
	}
	p.LastStatus = lastStatus
	r.db.participants[name] = p
	return nil
}

func (r *MemoryParticipantRepository) ListStale(_ context.Context, cutoff int64) ([]models.Participant, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return lo.Filter(lo.Values(r.db.participants), func(p models.Participant, _ int) bool {
		return p.LastStatus <= cutoff
	}), nil
}

func (r *MemoryParticipantRepository) DeleteIfStale(_ context.Context, name string, cutoff int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.db.deleteIfStale(name, cutoff), nil
}

func (r *MemoryParticipantRepository) Delete(_ context.Context, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.participants[name]; !ok {
		return ErrNotFound
	}
	delete(r.db.participants, name)
	return nil
}

// MemoryMessageRepository keeps messages in an append-only slice
type MemoryMessageRepository struct {
	db *memoryDB
}

func (r *MemoryMessageRepository) Create(_ context.Context, message *models.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.appendMessage(message)
	return nil
}

func (r *MemoryMessageRepository) Get(_ context.Context, id string) (*models.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	i := r.db.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	m := r.db.messages[i]
	return &m, nil
}

func (r *MemoryMessageRepository) List(_ context.Context) ([]models.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return slices.Clone(r.db.messages), nil
}

func (r *MemoryMessageRepository) Update(_ context.Context, message *models.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	i := r.db.indexOf(message.ID)
	if i < 0 {
		return ErrNotFound
	}
	stored := &r.db.messages[i]
	stored.To = message.To
	stored.Text = message.Text
	stored.Type = message.Type
	return nil
}

func (r *MemoryMessageRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	i := r.db.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.db.messages = slices.Delete(r.db.messages, i, i+1)
	return nil
}

// Evict removes a stale participant and appends its departure under one lock
func (db *memoryDB) Evict(_ context.Context, name string, cutoff int64, departure *models.Message) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.deleteIfStale(name, cutoff) {
		return false, nil
	}
	db.appendMessage(departure)
	return true, nil
}

// caller holds mu
func (db *memoryDB) deleteIfStale(name string, cutoff int64) bool {
	p, ok := db.participants[name]
	if !ok || p.LastStatus > cutoff {
		return false
	}
	delete(db.participants, name)
	return true
}

// caller holds mu
func (db *memoryDB) appendMessage(message *models.Message) {
	db.seq++
	message.Seq = db.seq
	message.ID = strconv.FormatInt(db.seq, 10)
	db.messages = append(db.messages, *message)
}

// caller holds mu
func (db *memoryDB) indexOf(id string) int {
	return slices.IndexFunc(db.messages, func(m models.Message) bool {
		return m.ID == id
	})
}
