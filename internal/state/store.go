package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"server/internal/domain"
)

const (
	// keyPrefix namespaces job lifecycle entries away from other users of
	// the same Redis database (rate-limit counters in particular).
	keyPrefix = "job:"

	// FailedTTL bounds how long a failed job stays pollable before the
	// ledger forgets it and polling starts returning not found.
	FailedTTL = 24 * time.Hour

	// PollTTL is applied to a job entry on every status poll so abandoned
	// jobs eventually expire instead of leaking.
	PollTTL = time.Hour
)

// Store is the job ledger: one Redis string per request ID holding the
// current lifecycle state. The ingress handler writes the initial
// queued entry; the consumer owns every later transition.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func jobKey(requestID string) string {
	return keyPrefix + requestID
}

// Set writes the lifecycle state for a request without touching expiry.
func (s *Store) Set(ctx context.Context, requestID string, state domain.JobState) error {
	if err := s.client.Set(ctx, jobKey(requestID), string(state), 0).Err(); err != nil {
		return fmt.Errorf("state: set %s=%s: %w", requestID, state, err)
	}
	return nil
}

// SetFailed marks the job failed and schedules the entry for expiry so
// repeated polling of a dead job eventually turns into not found.
func (s *Store) SetFailed(ctx context.Context, requestID string) error {
	if err := s.client.Set(ctx, jobKey(requestID), string(domain.JobStateFailed), FailedTTL).Err(); err != nil {
		return fmt.Errorf("state: set %s=failed: %w", requestID, err)
	}
	return nil
}

// Get returns the current state for a request, or domain.ErrNotFound when
// the ledger has no entry (never submitted, or expired). A value outside
// the known lifecycle states is an error, not a state.
func (s *Store) Get(ctx context.Context, requestID string) (domain.JobState, error) {
	val, err := s.client.Get(ctx, jobKey(requestID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("state: get %s: %w", requestID, err)
	}
	st := domain.JobState(val)
	if !st.Valid() {
		return "", fmt.Errorf("state: get %s: unexpected value %q", requestID, val)
	}
	return st, nil
}

// Delete removes the ledger entry. Used to roll back a partially
// submitted job so no orphaned queued entry survives an ingress failure.
func (s *Store) Delete(ctx context.Context, requestID string) error {
	if err := s.client.Del(ctx, jobKey(requestID)).Err(); err != nil {
		return fmt.Errorf("state: delete %s: %w", requestID, err)
	}
	return nil
}

// RefreshTTL resets the entry's expiry window. Called on every poll of an
// existing job.
func (s *Store) RefreshTTL(ctx context.Context, requestID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, jobKey(requestID), ttl).Err(); err != nil {
		return fmt.Errorf("state: refresh ttl %s: %w", requestID, err)
	}
	return nil
}
