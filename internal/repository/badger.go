package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"batepapo/backend/internal/models"

	"github.com/dgraph-io/badger/v4"
)

const (
	participantPrefix = "participant:"
	messagePrefix     = "msg:"
	messageSeqKey     = "seq:msg"
)

// badgerDB is the shared handle behind the Badger repositories
type badgerDB struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore creates a Store backed by an embedded Badger database.
// Messages are keyed by a zero-padded sequence so a prefix scan yields
// insertion order.
func NewBadgerStore(db *badger.DB) (*Store, error) {
	seq, err := db.GetSequence([]byte(messageSeqKey), 100)
	if err != nil {
		return nil, fmt.Errorf("failed to open message sequence: %w", err)
	}
	b := &badgerDB{db: db, seq: seq}
	store := &Store{
		Participants: &BadgerParticipantRepository{b: b},
		Messages:     &BadgerMessageRepository{b: b},
		Evictor:      b,
	}
	store.OnClose(seq.Release)
	return store, nil
}

func participantKey(name string) []byte {
	return []byte(participantPrefix + name)
}

func messageKey(seq int64) []byte {
	return []byte(fmt.Sprintf("%s%019d", messagePrefix, seq))
}

func messageKeyFromID(id string) ([]byte, bool) {
	seq, err := strconv.ParseInt(id, 10, 64)
	if err != nil || seq <= 0 {
		return nil, false
	}
	return messageKey(seq), true
}

// BadgerParticipantRepository stores participants under "participant:{name}"
type BadgerParticipantRepository struct {
	b *badgerDB
}

func (r *BadgerParticipantRepository) Create(_ context.Context, participant *models.Participant) error {
	data, err := json.Marshal(participant)
	if err != nil {
		return err
	}
	return r.b.db.Update(func(txn *badger.Txn) error {
		key := participantKey(participant.Name)
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (r *BadgerParticipantRepository) Get(_ context.Context, name string) (*models.Participant, error) {
	var p models.Participant
	err := r.b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, participantKey(name), &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BadgerParticipantRepository) List(_ context.Context) ([]models.Participant, error) {
	return r.scan(func(models.Participant) bool { return true })
}

func (r *BadgerParticipantRepository) Touch(_ context.Context, name string, lastStatus int64) error {
	return r.b.db.Update(func(txn *badger.Txn) error {
		var p models.Participant
		if err := getJSON(txn, participantKey(name), &p); err != nil {
			return err
		}
		p.LastStatus = lastStatus
		return setJSON(txn, participantKey(name), p)
	})
}

func (r *BadgerParticipantRepository) ListStale(_ context.Context, cutoff int64) ([]models.Participant, error) {
	return r.scan(func(p models.Participant) bool { return p.LastStatus <= cutoff })
}

func (r *BadgerParticipantRepository) DeleteIfStale(_ context.Context, name string, cutoff int64) (bool, error) {
	var removed bool
	err := r.b.db.Update(func(txn *badger.Txn) error {
		var err error
		removed, err = deleteIfStaleTxn(txn, name, cutoff)
		return err
	})
	return removed, err
}

func (r *BadgerParticipantRepository) Delete(_ context.Context, name string) error {
	return r.b.db.Update(func(txn *badger.Txn) error {
		key := participantKey(name)
		if _, err := txn.Get(key); err != nil {
			return translateBadgerErr(err)
		}
		return txn.Delete(key)
	})
}

func (r *BadgerParticipantRepository) Ping(_ context.Context) error {
	return r.b.ping()
}

func (r *BadgerParticipantRepository) scan(keep func(models.Participant) bool) ([]models.Participant, error) {
	participants := []models.Participant{}
	err := r.b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(participantPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p models.Participant
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &p)
			}); err != nil {
				return err
			}
			if keep(p) {
				participants = append(participants, p)
			}
		}
		return nil
	})
	return participants, err
}

// BadgerMessageRepository stores messages under "msg:{seq}"
type BadgerMessageRepository struct {
	b *badgerDB
}

func (r *BadgerMessageRepository) Create(_ context.Context, message *models.Message) error {
	if err := r.b.assign(message); err != nil {
		return err
	}
	return r.b.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, messageKey(message.Seq), message)
	})
}

func (r *BadgerMessageRepository) Get(_ context.Context, id string) (*models.Message, error) {
	key, ok := messageKeyFromID(id)
	if !ok {
		return nil, ErrNotFound
	}
	var m models.Message
	err := r.b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *BadgerMessageRepository) List(_ context.Context) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m models.Message
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &m)
			}); err != nil {
				return err
			}
			messages = append(messages, m)
		}
		return nil
	})
	return messages, err
}

func (r *BadgerMessageRepository) Update(_ context.Context, message *models.Message) error {
	key, ok := messageKeyFromID(message.ID)
	if !ok {
		return ErrNotFound
	}
	return r.b.db.Update(func(txn *badger.Txn) error {
		var stored models.Message
		if err := getJSON(txn, key, &stored); err != nil {
			return err
		}
		stored.To = message.To
		stored.Text = message.Text
		stored.Type = message.Type
		return setJSON(txn, key, stored)
	})
}

func (r *BadgerMessageRepository) Delete(_ context.Context, id string) error {
	key, ok := messageKeyFromID(id)
	if !ok {
		return ErrNotFound
	}
	return r.b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return translateBadgerErr(err)
		}
		return txn.Delete(key)
	})
}

func (r *BadgerMessageRepository) Ping(_ context.Context) error {
	return r.b.ping()
}

// Evict deletes the stale participant and writes its departure in one transaction
func (b *badgerDB) Evict(_ context.Context, name string, cutoff int64, departure *models.Message) (bool, error) {
	if err := b.assign(departure); err != nil {
		return false, err
	}
	var removed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		var err error
		removed, err = deleteIfStaleTxn(txn, name, cutoff)
		if err != nil || !removed {
			return err
		}
		return setJSON(txn, messageKey(departure.Seq), departure)
	})
	return removed, err
}

func (b *badgerDB) assign(message *models.Message) error {
	next, err := b.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate message id: %w", err)
	}
	// Badger sequences start at zero; ids start at one.
	message.Seq = int64(next) + 1
	message.ID = strconv.FormatInt(message.Seq, 10)
	return nil
}

func (b *badgerDB) ping() error {
	if b.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

func deleteIfStaleTxn(txn *badger.Txn, name string, cutoff int64) (bool, error) {
	var p models.Participant
	if err := getJSON(txn, participantKey(name), &p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if p.LastStatus > cutoff {
		return false, nil
	}
	return true, txn.Delete(participantKey(name))
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return translateBadgerErr(err)
	}
	return item.Value(func(v []byte) error {
		return json.Unmarshal(v, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func translateBadgerErr(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
