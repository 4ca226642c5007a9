package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/models"
)

// A turn holds the lock for at most this long, even if its holder dies.
const lockTTL = 3 * time.Minute

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps tutoring conversations as TTL'd JSON documents. A
// conversation lives as long as the learner keeps talking to the tutor.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	log   *logger.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{redis: client, ttl: ttl, log: log}
}

func conversationKey(id uuid.UUID) string {
	return fmt.Sprintf("conversation:%s", id.String())
}

func lockKey(id uuid.UUID) string {
	return fmt.Sprintf("conversation_lock:%s", id.String())
}

// Save writes the conversation and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(conv.ID), data, s.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindPersistenceFailed, "conversation.save", err)
	}
	return nil
}

// Get returns the learner's conversation. Conversations of other learners
// are reported as not found.
func (s *RedisStore) Get(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error) {
	const op = "conversation.get"

	data, err := s.redis.Get(ctx, conversationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.New(apperr.KindNotFound, op, "conversation not found or expired")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailed, op, err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", id, err)
	}
	if conv.UserID != userID {
		return nil, apperr.New(apperr.KindNotFound, op, "conversation not found or expired")
	}
	if conv.History == nil {
		conv.History = []models.ChatTurn{}
	}
	return &conv, nil
}

// Lock claims the conversation for one turn. A second caller gets
// KindTurnInFlight until the returned release func runs or the lock expires.
func (s *RedisStore) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	const op = "conversation.lock"

	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, lockKey(id), token, lockTTL).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistenceFailed, op, err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindTurnInFlight, op, "a previous question is still being answered")
	}

	release := func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, s.redis, []string{lockKey(id)}, token).Err(); err != nil {
			s.log.Warn("Conversation lock release failed, held until expiry",
				"conversation_id", id.String(), "ttl", lockTTL, "error", err)
		}
	}
	return release, nil
}
