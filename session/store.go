package session

import (
	"context"
	"encoding/json"
	"time"

	"restaurant-menu/apperr"
	"restaurant-menu/models"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Store persists the server-side session records.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	// FindSession returns an apperr.ENotFound error for unknown ids.
	FindSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// GormStore keeps sessions in the sessions table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return apperr.Internal("session.GormStore.CreateSession", err)
	}
	return nil
}

func (s *GormStore) FindSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "session.GormStore.FindSession"
	var sess models.Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(op, "session not found")
		}
		return nil, apperr.Internal(op, err)
	}
	return &sess, nil
}

func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
		return apperr.Internal("session.GormStore.DeleteSession", err)
	}
	return nil
}

// RedisStore keeps sessions as JSON values under session:<id>, expiring
// with the session.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func redisKey(id string) string {
	return "session:" + id
}

func (s *RedisStore) CreateSession(ctx context.Context, sess *models.Session) error {
	const op = "session.RedisStore.CreateSession"
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return apperr.Internal(op, errors.New("session already expired"))
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if err := s.client.Set(ctx, redisKey(sess.ID), b, ttl).Err(); err != nil {
		return apperr.Internal(op, err)
	}
	return nil
}

func (s *RedisStore) FindSession(ctx context.Context, id string) (*models.Session, error) {
	const op = "session.RedisStore.FindSession"
	b, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperr.NotFound(op, "session not found")
	}
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	var sess models.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, apperr.Internal(op, errors.Wrap(err, "decode session"))
	}
	return &sess, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return apperr.Internal("session.RedisStore.DeleteSession", err)
	}
	return nil
}
