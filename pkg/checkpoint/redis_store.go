package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkpointTTL = 24 * time.Hour

// Store persists per-session workflow snapshots so a session's last turn
// state can be inspected or resumed. Saves are best-effort.
type Store interface {
	Save(ctx context.Context, sessionID string, state any) error
	Load(ctx context.Context, sessionID string, out any) (bool, error)
}

// RedisStore keeps one checkpoint per session under a TTL.
type RedisStore struct {
	client *redis.Client
	logger *log.Logger
}

func NewRedisStore(client *redis.Client, logger *log.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func checkpointKey(sessionID string) string {
	return "workflow:checkpoint:" + sessionID
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, checkpointKey(sessionID), payload, checkpointTTL).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load fills out with the stored snapshot. The boolean reports whether a
// checkpoint existed.
func (s *RedisStore) Load(ctx context.Context, sessionID string, out any) (bool, error) {
	payload, err := s.client.Get(ctx, checkpointKey(sessionID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return true, nil
}
