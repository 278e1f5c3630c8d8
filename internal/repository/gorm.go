package repository

import (
	"context"
	"errors"
	"strconv"

	"batepapo/backend/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type participantRecord struct {
	Name       string `gorm:"primaryKey"`
	LastStatus int64  `gorm:"index"`
}

func (participantRecord) TableName() string { return "participants" }

type messageRecord struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	From string `gorm:"column:from_name;index"`
	To   string `gorm:"column:to_name;index"`
	Text string
	Type string `gorm:"index"`
	Time string
}

func (messageRecord) TableName() string { return "messages" }

func (r messageRecord) toModel() models.Message {
	return models.Message{
		ID:   strconv.FormatInt(r.ID, 10),
		Seq:  r.ID,
		From: r.From,
		To:   r.To,
		Text: r.Text,
		Type: models.MessageType(r.Type),
		Time: r.Time,
	}
}

// MigrateGorm creates the participants and messages tables
func MigrateGorm(db *gorm.DB) error {
	return db.AutoMigrate(&participantRecord{}, &messageRecord{})
}

// NewGormStore creates a Store backed by a SQL database through GORM. The
// gorm.Config must have TranslateError enabled so unique violations surface
// as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) *Store {
	g := &gormDB{db: db}
	return &Store{
		Participants: &GormParticipantRepository{g: g},
		Messages:     &GormMessageRepository{g: g},
		Evictor:      g,
	}
}

type gormDB struct {
	db *gorm.DB
}

func (g *gormDB) ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Evict runs the stale delete and the departure insert in one SQL transaction
func (g *gormDB) Evict(ctx context.Context, name string, cutoff int64, departure *models.Message) (bool, error) {
	var removed bool
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = deleteStaleParticipant(tx, name, cutoff)
		if err != nil || !removed {
			return err
		}
		return createMessage(tx, departure)
	})
	return removed, err
}

// GormParticipantRepository stores participants in the participants table
type GormParticipantRepository struct {
	g *gormDB
}

func (r *GormParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	rec := participantRecord{Name: participant.Name, LastStatus: participant.LastStatus}
	err := r.g.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (r *GormParticipantRepository) Get(ctx context.Context, name string) (*models.Participant, error) {
	var rec participantRecord
	err := r.g.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &models.Participant{Name: rec.Name, LastStatus: rec.LastStatus}, nil
}

func (r *GormParticipantRepository) List(ctx context.Context) ([]models.Participant, error) {
	var recs []participantRecord
	if err := r.g.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	return toParticipants(recs), nil
}

func (r *GormParticipantRepository) Touch(ctx context.Context, name string, lastStatus int64) error {
	result := r.g.db.WithContext(ctx).Model(&participantRecord{}).
		Where("name = ?", name).
		Update("last_status", lastStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormParticipantRepository) ListStale(ctx context.Context, cutoff int64) ([]models.Participant, error) {
	var recs []participantRecord
	if err := r.g.db.WithContext(ctx).Where("last_status <= ?", cutoff).Find(&recs).Error; err != nil {
		return nil, err
	}
	return toParticipants(recs), nil
}

func (r *GormParticipantRepository) DeleteIfStale(ctx context.Context, name string, cutoff int64) (bool, error) {
	return deleteStaleParticipant(r.g.db.WithContext(ctx), name, cutoff)
}

func (r *GormParticipantRepository) Delete(ctx context.Context, name string) error {
	result := r.g.db.WithContext(ctx).Where("name = ?", name).Delete(&participantRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormParticipantRepository) Ping(ctx context.Context) error {
	return r.g.ping(ctx)
}

// GormMessageRepository stores messages in the messages table; the serial
// primary key doubles as the insertion sequence.
type GormMessageRepository struct {
	g *gormDB
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return createMessage(r.g.db.WithContext(ctx), message)
}

func (r *GormMessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	var rec messageRecord
	if err := r.g.db.WithContext(ctx).First(&rec, key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m := rec.toModel()
	return &m, nil
}

func (r *GormMessageRepository) List(ctx context.Context) ([]models.Message, error) {
	var recs []messageRecord
	if err := r.g.db.WithContext(ctx).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return lo.Map(recs, func(rec messageRecord, _ int) models.Message {
		return rec.toModel()
	}), nil
}

func (r *GormMessageRepository) Update(ctx context.Context, message *models.Message) error {
	key, err := strconv.ParseInt(message.ID, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	result := r.g.db.WithContext(ctx).Model(&messageRecord{}).
		Where("id = ?", key).
		Updates(map[string]any{
			"to_name": message.To,
			"text":    message.Text,
			"type":    string(message.Type),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, id string) error {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ErrNotFound
	}
	result := r.g.db.WithContext(ctx).Delete(&messageRecord{}, key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormMessageRepository) Ping(ctx context.Context) error {
	return r.g.ping(ctx)
}

func deleteStaleParticipant(db *gorm.DB, name string, cutoff int64) (bool, error) {
	result := db.Where("name = ? AND last_status <= ?", name, cutoff).Delete(&participantRecord{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func createMessage(db *gorm.DB, message *models.Message) error {
	rec := messageRecord{
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Type: string(message.Type),
		Time: message.Time,
	}
	if err := db.Create(&rec).Error; err != nil {
		return err
	}
	message.Seq = rec.ID
	message.ID = strconv.FormatInt(rec.ID, 10)
	return nil
}

func toParticipants(recs []participantRecord) []models.Participant {
	return lo.Map(recs, func(rec participantRecord, _ int) models.Participant {
		return models.Participant{Name: rec.Name, LastStatus: rec.LastStatus}
	})
}
