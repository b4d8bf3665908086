package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RoberAF/chatbot/internal/constants"
	"github.com/RoberAF/chatbot/pkg/logger"
	"github.com/RoberAF/chatbot/pkg/redis"
)

// RedisStore keeps per-user memory in a capped redis list so fragments
// survive process restarts. Entries are stored newest first.
type RedisStore struct {
	client   *redis.Client
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

func NewRedisStore(client *redis.Client, capacity int, ttl time.Duration) *RedisStore {
	if capacity <= 0 {
		capacity = 64
	}
	return &RedisStore{
		client:   client,
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

type redisEntry struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func memoryKey(userID uint) string {
	return fmt.Sprintf("%s%d", constants.CacheKeyMemory, userID)
}

func (s *RedisStore) Add(ctx context.Context, userID uint, text string) error {
	payload, err := json.Marshal(redisEntry{Text: text, Timestamp: s.now()})
	if err != nil {
		return fmt.Errorf("failed to encode memory entry: %w", err)
	}
	return s.client.LPushTrim(ctx, memoryKey(userID), string(payload), s.capacity, s.ttl)
}

func (s *RedisStore) Recent(ctx context.Context, userID uint, k int) ([]Item, error) {
	if k <= 0 {
		return nil, nil
	}

	values, err := s.client.LRange(ctx, memoryKey(userID), k)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(values))
	for _, value := range values {
		var entry redisEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			// Skip corrupted entries rather than failing the whole read.
			logger.WarnWithContext(ctx, "Skipping unreadable memory entry").
				Uint("user_id", userID).
				Err(err).
				Log()
			continue
		}
		items = append(items, Item{UserID: userID, Text: entry.Text, Timestamp: entry.Timestamp})
	}
	return items, nil
}
