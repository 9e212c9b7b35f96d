// Package session persists serialized cart state between requests in
// an external key-value store. The engine treats it as opaque storage
// with read-at-start / write-at-end access.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps JSON snapshots keyed by session identifier.
type Store struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s *Store) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "cart:session:"
	}
	return prefix + id
}

// Load reads a snapshot into dst. It reports whether the key existed.
func (s *Store) Load(ctx context.Context, id string, dst any) (bool, error) {
	if s == nil || s.R == nil || id == "" {
		return false, nil
	}
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes a snapshot with the configured TTL.
func (s *Store) Save(ctx context.Context, id string, v any) error {
	if s == nil || s.R == nil || id == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, s.key(id), data, s.TTL).Err()
}

// Delete removes a stored snapshot.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.R == nil || id == "" {
		return nil
	}
	return s.R.Del(ctx, s.key(id)).Err()
}
