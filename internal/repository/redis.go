package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"batepapo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// Touch only refreshes members that are already present
var touchScript = redis.NewScript(`
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
	return 1
end
return 0
`)

var deleteIfStaleScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if score and tonumber(score) <= tonumber(ARGV[2]) then
	redis.call('ZREM', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// RedisParticipantRepository keeps presence in a sorted set scored by
// LastStatus, so stale lookups are a range query.
type RedisParticipantRepository struct {
	client *redis.Client
	key    string
}

// NewRedisParticipantRepository stores participants under "{prefix}participants"
func NewRedisParticipantRepository(client *redis.Client, prefix string) *RedisParticipantRepository {
	return &RedisParticipantRepository{client: client, key: prefix + participantsCollection}
}

func (r *RedisParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	added, err := r.client.ZAddNX(ctx, r.key, redis.Z{
		Score:  float64(participant.LastStatus),
		Member: participant.Name,
	}).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *RedisParticipantRepository) Get(ctx context.Context, name string) (*models.Participant, error) {
	score, err := r.client.ZScore(ctx, r.key, name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &models.Participant{Name: name, LastStatus: int64(score)}, nil
}

func (r *RedisParticipantRepository) List(ctx context.Context) ([]models.Participant, error) {
	zs, err := r.client.ZRangeWithScores(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return fromZ(zs), nil
}

func (r *RedisParticipantRepository) Touch(ctx context.Context, name string, lastStatus int64) error {
	updated, err := touchScript.Run(ctx, r.client, []string{r.key}, name, lastStatus).Int64()
	if err != nil {
		return err
	}
	if updated == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisParticipantRepository) ListStale(ctx context.Context, cutoff int64) ([]models.Participant, error) {
	zs, err := r.client.ZRangeByScoreWithScores(ctx, r.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	return fromZ(zs), nil
}

func (r *RedisParticipantRepository) DeleteIfStale(ctx context.Context, name string, cutoff int64) (bool, error) {
	removed, err := deleteIfStaleScript.Run(ctx, r.client, []string{r.key}, name, cutoff).Int64()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

func (r *RedisParticipantRepository) Delete(ctx context.Context, name string) error {
	removed, err := r.client.ZRem(ctx, r.key, name).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisParticipantRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func fromZ(zs []redis.Z) []models.Participant {
	return lo.Map(zs, func(z redis.Z, _ int) models.Participant {
		return models.Participant{Name: fmt.Sprint(z.Member), LastStatus: int64(z.Score)}
	})
}
