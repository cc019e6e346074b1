package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "idempotency:"

// RedisOption customises RedisStore behaviour.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key prefix used for idempotency records.
func WithKeyPrefix(prefix string) RedisOption {
	return func(store *RedisStore) {
		if prefix != "" {
			store.prefix = prefix
		}
	}
}

// RedisStore implements Store backed by Redis. Record expiry is delegated to
// Redis key TTLs, so CleanupExpired is a no-op.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore constructs a Redis-backed idempotency store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

type redisRecord struct {
	Key             string              `json:"key"`
	Fingerprint     string              `json:"fingerprint"`
	Status          string              `json:"status"`
	ResponseStatus  int                 `json:"response_status,omitempty"`
	ResponseHeaders map[string][]string `json:"response_headers,omitempty"`
	ResponseBody    []byte              `json:"response_body,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
}

func (r redisRecord) toRecord() Record {
	return Record{
		Key:             r.Key,
		Fingerprint:     r.Fingerprint,
		Status:          Status(r.Status),
		ResponseStatus:  r.ResponseStatus,
		ResponseHeaders: r.ResponseHeaders,
		ResponseBody:    r.ResponseBody,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}

func (s *RedisStore) recordKey(key string) string {
	return s.prefix + recordID(key)
}

// Reserve ensures the key is uniquely associated with the fingerprint and
// returns any stored response.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	record := redisRecord{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      string(StatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: encoding record: %w", err)
	}

	redisKey := s.recordKey(key)
	created, err := s.client.SetNX(ctx, redisKey, payload, ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: reserving key: %w", err)
	}
	if created {
		return Reservation{State: ReservationStateNew, Record: record.toRecord()}, nil
	}

	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// The record expired between SetNX and Get; retry the reservation.
			return s.Reserve(ctx, key, fingerprint, now, ttl)
		}
		return Reservation{}, fmt.Errorf("idempotency: loading record: %w", err)
	}

	var existing redisRecord
	if err := json.Unmarshal(raw, &existing); err != nil {
		return Reservation{}, fmt.Errorf("idempotency: decoding record: %w", err)
	}
	if existing.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}

	if existing.Status == string(StatusCompleted) {
		return Reservation{State: ReservationStateCompleted, Record: existing.toRecord()}, nil
	}
	return Reservation{State: ReservationStatePending, Record: existing.toRecord()}, nil
}

// SaveResponse persists the completed HTTP response associated with the key.
func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	redisKey := s.recordKey(key)
	raw, err := s.client.Get(ctx, redisKey).Bytes()
	createdAt := now
	if err == nil {
		var existing redisRecord
		if err := json.Unmarshal(raw, &existing); err == nil {
			if existing.Fingerprint != fingerprint {
				return ErrFingerprintMismatch
			}
			if !existing.CreatedAt.IsZero() {
				createdAt = existing.CreatedAt
			}
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("idempotency: loading record: %w", err)
	}

	var bodyCopy []byte
	if len(resp.Body) > 0 {
		bodyCopy = append([]byte(nil), resp.Body...)
	}

	record := redisRecord{
		Key:             key,
		Fingerprint:     fingerprint,
		Status:          string(StatusCompleted),
		ResponseStatus:  resp.Status,
		ResponseHeaders: sanitizeHeaders(resp.Headers),
		ResponseBody:    bodyCopy,
		CreatedAt:       createdAt,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("idempotency: encoding record: %w", err)
	}
	if err := s.client.Set(ctx, redisKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: saving response: %w", err)
	}
	return nil
}

// Release removes the reservation to allow callers to retry.
func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	if err := s.client.Del(ctx, s.recordKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("idempotency: releasing key: %w", err)
	}
	return nil
}

// CleanupExpired is a no-op for Redis; key TTLs handle expiry.
func (s *RedisStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	return 0, nil
}
