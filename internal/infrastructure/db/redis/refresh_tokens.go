package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/todo-system/internal/core/domain"
)

// RefreshTokenStore keeps refresh tokens in Redis.
//
//	refresh:user:<user_id>  -> token value (claimed with SETNX)
//	refresh:token:<value>   -> hash{id, user_id, created_at}
//
// Both keys expire with the token lifetime.
type RefreshTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRefreshTokenStore(client *redis.Client, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{client: client, ttl: ttl}
}

func (s *RefreshTokenStore) Create(ctx context.Context, t *domain.RefreshToken) error {
	claimed, err := s.client.SetNX(ctx, userKey(t.UserID), t.Token, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim refresh token: %w", err)
	}
	if !claimed {
		return domain.ErrRefreshTokenExists
	}

	tk := tokenKey(t.Token)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, tk,
		"id", t.ID,
		"user_id", strconv.FormatInt(t.UserID, 10),
		"created_at", strconv.FormatInt(t.CreatedAt.Unix(), 10),
	)
	pipe.Expire(ctx, tk, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		_ = s.client.Del(ctx, userKey(t.UserID)).Err()
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RefreshTokenStore) FindByUserID(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	token, err := s.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return s.FindByToken(ctx, token)
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	fields, err := s.client.HGetAll(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrRefreshTokenNotFound
	}

	userID, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode refresh token user_id: %w", err)
	}
	created, _ := strconv.ParseInt(fields["created_at"], 10, 64)

	return &domain.RefreshToken{
		ID:        fields["id"],
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Unix(created, 0).UTC(),
	}, nil
}

func (s *RefreshTokenStore) DeleteByToken(ctx context.Context, token string) error {
	rt, err := s.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, tokenKey(token), userKey(rt.UserID)).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func userKey(userID int64) string {
	return "refresh:user:" + strconv.FormatInt(userID, 10)
}

func tokenKey(token string) string {
	return "refresh:token:" + token
}
