package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"riscguard/pkg/platform/sentinel"
)

// Redis key layout. The link hash is written by the OAuth connection flow
// (outside this service); this store only reads it and records revocation
// and suspension markers next to it.
const (
	linkKeyPrefix      = "account:sub:"
	revokedKeyPrefix   = "account:revoked:"
	suspendedKeyPrefix = "account:suspended:"
)

// RedisStore implements Repository against the shared account state in
// Redis. This is the production store for distributed deployments.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed account repository.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RevokeTokensBySubject deletes the stored OAuth tokens for the linked
// account and records a revocation marker. Setting the marker twice is
// harmless, which keeps the operation idempotent.
func (s *RedisStore) RevokeTokensBySubject(ctx context.Context, subjectID string) (Result, error) {
	email, err := s.lookupEmail(ctx, subjectID)
	if err != nil {
		return Result{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, linkKeyPrefix+subjectID, "access_token", "refresh_token")
	pipe.Set(ctx, revokedKeyPrefix+subjectID, "1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("revoke tokens for subject %q: %w", subjectID, err)
	}

	return Result{Success: true, Email: email}, nil
}

// SuspendAccountBySubject records a suspension marker and revokes stored
// tokens in the same transaction.
func (s *RedisStore) SuspendAccountBySubject(ctx context.Context, subjectID string) (Result, error) {
	email, err := s.lookupEmail(ctx, subjectID)
	if err != nil {
		return Result{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, linkKeyPrefix+subjectID, "access_token", "refresh_token")
	pipe.Set(ctx, revokedKeyPrefix+subjectID, "1", 0)
	pipe.Set(ctx, suspendedKeyPrefix+subjectID, "1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("suspend account for subject %q: %w", subjectID, err)
	}

	return Result{Success: true, Email: email}, nil
}

func (s *RedisStore) lookupEmail(ctx context.Context, subjectID string) (string, error) {
	email, err := s.client.HGet(ctx, linkKeyPrefix+subjectID, "email").Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("subject %q: %w", subjectID, sentinel.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("lookup subject %q: %w", subjectID, err)
	}
	return email, nil
}
