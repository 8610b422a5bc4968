package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "statio:realtime:"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
type redisPayload struct {
	Message WSMessage `json:"message"`
	At      int64     `json:"at"`
}

// RedisPubSub implements Publisher and Subscriber using Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for topic events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// PublishTopicEvent publishes an event to the topic's Redis channel.
func (r *RedisPubSub) PublishTopicEvent(ctx context.Context, topic string, msg WSMessage) error {
	body, err := json.Marshal(redisPayload{Message: msg, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelPrefix+topic, body).Err()
}

// SubscribeTopics subscribes to the topics' Redis channels and calls handler for each message.
// Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeTopics(ctx context.Context, topics []string, handler func(topic string, msg WSMessage)) (cancel func(), err error) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = channelPrefix + t
	}
	ctx, cancelCtx := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Warn("invalid realtime payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				handler(strings.TrimPrefix(msg.Channel, channelPrefix), p.Message)
			}
		}
	}()
	return cancelCtx, nil
}
