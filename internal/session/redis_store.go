// Package session keeps refresh sessions in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// Session is what a refresh token resolves to.
type Session struct {
	ResidentID int64     `json:"resident_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "treeplant:refresh:"}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

// residentKey indexes the token hashes issued to one resident.
func (s *RedisStore) residentKey(residentID int64) string {
	return s.prefix + "resident:" + strconv.FormatInt(residentID, 10)
}

func (s *RedisStore) SaveRefreshSession(ctx context.Context, tokenHash string, session Session, expiresAt time.Time) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save refresh session: expiry %s is in the past", expiresAt.Format(time.RFC3339))
	}

	index := s.residentKey(session.ResidentID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(tokenHash), payload, ttl)
		pipe.SAdd(ctx, index, tokenHash)
		pipe.Expire(ctx, index, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

// ConsumeRefreshSession reads and deletes a refresh session in one step, so
// each token can be redeemed once.
func (s *RedisStore) ConsumeRefreshSession(ctx context.Context, tokenHash string) (Session, error) {
	payload, err := s.client.GetDel(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("consume refresh session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := s.client.SRem(ctx, s.residentKey(session.ResidentID), tokenHash).Err(); err != nil {
		return Session{}, fmt.Errorf("unindex refresh session: %w", err)
	}
	return session, nil
}

func (s *RedisStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if _, err := s.ConsumeRefreshSession(ctx, tokenHash); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// RevokeResidentSessions drops every refresh session of a resident.
func (s *RedisStore) RevokeResidentSessions(ctx context.Context, residentID int64) error {
	index := s.residentKey(residentID)
	hashes, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("list resident sessions: %w", err)
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, s.key(hash))
	}
	keys = append(keys, index)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke resident sessions: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
