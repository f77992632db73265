package service

import (
	"context"
	"encoding/json"
	"errors"
	"ppe_inspection/internal/form"
	"time"

	"github.com/go-redis/redis/v8"
)

const draftKeyPrefix = "ppe:draft:"

// Draft is a snapshot of an unfinished form. Photo binaries are not part of
// it; only their metadata and upload state are.
type Draft struct {
	State   form.State   `json:"state"`
	Current form.Section `json:"current"`
	SavedAt time.Time    `json:"savedAt"`
}

// DraftStore keeps drafts between process restarts. Load returns nil and no
// error when there is no draft.
type DraftStore interface {
	Load(ctx context.Context, token string) (*Draft, error)
	Save(ctx context.Context, token string, d *Draft) error
	Delete(ctx context.Context, token string) error
}

type RedisDraftStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisDraftStore(rdb *redis.Client, ttl time.Duration) *RedisDraftStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisDraftStore{Redis: rdb, TTL: ttl}
}

func (s *RedisDraftStore) Load(ctx context.Context, token string) (*Draft, error) {
	val, err := s.Redis.Get(ctx, draftKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, token string, d *Draft) error {
	val, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, draftKeyPrefix+token, val, s.TTL).Err()
}

func (s *RedisDraftStore) Delete(ctx context.Context, token string) error {
	return s.Redis.Del(ctx, draftKeyPrefix+token).Err()
}
