package redis

// Package redis provides Redis-based adapters for visitor session records.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akmalstorm/stdcalumni/internal/ports"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "alumni:session:"

var _ ports.RecordStore = (*RecordStore)(nil)

// RecordStoreOptions configures a RecordStore.
type RecordStoreOptions struct {
	// Prefix is prepended to every visitor scope to build the hash key.
	Prefix string
	// TTL is refreshed on every write. Zero disables expiry.
	TTL time.Duration
}

// RecordStore keeps each visitor's fields in one Redis hash.
type RecordStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRecordStore creates a Redis-backed RecordStore.
func NewRecordStore(client redis.UniversalClient, opts RecordStoreOptions) *RecordStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RecordStore{client: client, prefix: prefix, ttl: opts.TTL}
}

// ErrScopeRequired is returned when an operation is attempted without a visitor scope.
var ErrScopeRequired = errors.New("record scope cannot be empty")

func (s *RecordStore) key(scope string) string { return s.prefix + scope }

// Load returns every field of the visitor's hash.
func (s *RecordStore) Load(ctx context.Context, scope string) (map[string]string, error) {
	if scope == "" {
		return nil, ErrScopeRequired
	}
	fields, err := s.client.HGetAll(ctx, s.key(scope)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return fields, nil
}

// Store writes fields and refreshes the hash TTL in one MULTI/EXEC.
func (s *RecordStore) Store(ctx context.Context, scope string, fields map[string]string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if len(fields) == 0 {
		return nil
	}
	key := s.key(scope)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Remove deletes keys from the visitor's hash in a single HDEL.
func (s *RecordStore) Remove(ctx context.Context, scope string, keys ...string) error {
	if scope == "" {
		return ErrScopeRequired
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key(scope), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
