package repository

import (
	"context"
	"errors"
	"fmt"

	"batepapo/backend/internal/models"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	participantsCollection = "participants"
	messagesCollection     = "messages"
	countersCollection     = "counters"
)

type mongoParticipant struct {
	Name       string `bson:"name"`
	LastStatus int64  `bson:"lastStatus"`
}

type mongoMessage struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Seq  int64              `bson:"seq"`
	From string             `bson:"from"`
	To   string             `bson:"to"`
	Text string             `bson:"text"`
	Type string             `bson:"type"`
	Time string             `bson:"time"`
}

func (m mongoMessage) toModel() models.Message {
	return models.Message{
		ID:   m.ID.Hex(),
		Seq:  m.Seq,
		From: m.From,
		To:   m.To,
		Text: m.Text,
		Type: models.MessageType(m.Type),
		Time: m.Time,
	}
}

// NewMongoStore creates a Store over the participants and messages collections
// of db and ensures their indexes. Evictions are not transactional on this
// backend (multi-document transactions need a replica set), so Store.Evictor
// stays nil.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	participants := db.Collection(participantsCollection)
	messages := db.Collection(messagesCollection)

	_, err := participants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "lastStatus", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create participant indexes: %w", err)
	}
	_, err = messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "seq", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message indexes: %w", err)
	}

	return &Store{
		Participants: &MongoParticipantRepository{coll: participants},
		Messages: &MongoMessageRepository{
			coll:     messages,
			counters: db.Collection(countersCollection),
		},
	}, nil
}

// MongoParticipantRepository stores participants as {name, lastStatus} documents
type MongoParticipantRepository struct {
	coll *mongo.Collection
}

func (r *MongoParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	_, err := r.coll.InsertOne(ctx, mongoParticipant{Name: participant.Name, LastStatus: participant.LastStatus})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *MongoParticipantRepository) Get(ctx context.Context, name string) (*models.Participant, error) {
	var doc mongoParticipant
	err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &models.Participant{Name: doc.Name, LastStatus: doc.LastStatus}, nil
}

func (r *MongoParticipantRepository) List(ctx context.Context) ([]models.Participant, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoParticipantRepository) Touch(ctx context.Context, name string, lastStatus int64) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"lastStatus": lastStatus}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoParticipantRepository) ListStale(ctx context.Context, cutoff int64) ([]models.Participant, error) {
	return r.find(ctx, bson.M{"lastStatus": bson.M{"$lte": cutoff}})
}

func (r *MongoParticipantRepository) DeleteIfStale(ctx context.Context, name string, cutoff int64) (bool, error) {
	result, err := r.coll.DeleteOne(ctx, bson.M{"name": name, "lastStatus": bson.M{"$lte": cutoff}})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *MongoParticipantRepository) Delete(ctx context.Context, name string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoParticipantRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *MongoParticipantRepository) find(ctx context.Context, filter bson.M) ([]models.Participant, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []mongoParticipant
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(doc mongoParticipant, _ int) models.Participant {
		return models.Participant{Name: doc.Name, LastStatus: doc.LastStatus}
	}), nil
}

// MongoMessageRepository stores messages with a counter-allocated seq for ordering
type MongoMessageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func (r *MongoMessageRepository) Create(ctx context.Context, message *models.Message) error {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	doc := mongoMessage{
		ID:   primitive.NewObjectID(),
		Seq:  seq,
		From: message.From,
		To:   message.To,
		Text: message.Text,
		Type: string(message.Type),
		Time: message.Time,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	message.ID = doc.ID.Hex()
	message.Seq = seq
	return nil
}

func (r *MongoMessageRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc mongoMessage
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m := doc.toModel()
	return &m, nil
}

func (r *MongoMessageRepository) List(ctx context.Context) ([]models.Message, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []mongoMessage
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(doc mongoMessage, _ int) models.Message {
		return doc.toModel()
	}), nil
}

func (r *MongoMessageRepository) Update(ctx context.Context, message *models.Message) error {
	oid, err := primitive.ObjectIDFromHex(message.ID)
	if err != nil {
		return ErrNotFound
	}
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"to":   message.To,
			"text": message.Text,
			"type": string(message.Type),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMessageRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoMessageRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (r *MongoMessageRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messagesCollection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate message sequence: %w", err)
	}
	return counter.Seq, nil
}
