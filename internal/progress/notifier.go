package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tutorly-backend/internal/models"
)

const MessageTypeProgressError = "progress_error"

// UserChannel is the pub/sub channel the websocket hub relays to a learner.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

// RedisNotifier publishes progress failures as websocket messages.
type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: client}
}

func (n *RedisNotifier) PublishProgressError(ctx context.Context, userID uuid.UUID, evt models.ProgressErrorEvent) error {
	data, err := json.Marshal(models.WSMessage{Type: MessageTypeProgressError, Payload: evt})
	if err != nil {
		return err
	}
	return n.redis.Publish(ctx, UserChannel(userID), string(data)).Err()
}
