// Package cache persists the dashboard session's state snapshot in
// Redis so a restarted process can warm-start with the same cached
// appointment list instead of an empty dashboard. Redis is a cache
// here, never a system of record: the clinic backend owns the data.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/state"
)

// ErrNotFound is returned when no snapshot exists for the session.
var ErrNotFound = errors.New("cache: snapshot not found")

// Store reads and writes per-session state snapshots.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a snapshot store. A zero ttl means snapshots never
// expire on their own.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("dashboard:snapshot:%s", sessionID)
}

// Get loads the snapshot for a session. ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, sessionID string) (*state.Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get snapshot: %w", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("cache: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Set replaces the session's snapshot wholesale.
func (s *Store) Set(ctx context.Context, sessionID string, snap state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set snapshot: %w", err)
	}
	return nil
}

// Delete drops the snapshot, as on logout.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cache: delete snapshot: %w", err)
	}
	return nil
}
