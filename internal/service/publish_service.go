package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chnk8802/task-manager/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// AccountEventsChannel is the Redis channel the mailer subscribes to
var AccountEventsChannel = "CH:API:ACCOUNT:EVENTS"

const publishTimeout = 5 * time.Second

// Account event types
const (
	EventWelcome      = "welcome"
	EventCancellation = "cancellation"
)

// AccountEvent is a notice about an account lifecycle change.
// It never carries credentials.
type AccountEvent struct {
	Type  string    `json:"type"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	At    time.Time `json:"at"`
}

// Notifier hands account events to whoever sends the emails
type Notifier interface {
	Notify(ctx context.Context, event AccountEvent) error
}

// RedisNotifier publishes account events to a Redis channel
type RedisNotifier struct {
	redisClient *redis.Client
	channel     string
}

// NewRedisNotifier creates a notifier publishing to AccountEventsChannel
func NewRedisNotifier(redisClient *redis.Client) *RedisNotifier {
	return &RedisNotifier{redisClient: redisClient, channel: AccountEventsChannel}
}

// Notify publishes event as JSON
func (n *RedisNotifier) Notify(ctx context.Context, event AccountEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %v", err)
	}
	if err := n.redisClient.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %v", err)
	}
	return nil
}

// LogNotifier only logs events. Used when Redis is not configured.
type LogNotifier struct{}

// Notify logs the event
func (LogNotifier) Notify(_ context.Context, event AccountEvent) error {
	zaplogger.Info("Account event", zaplogger.Fields{"type": event.Type, "email": event.Email})
	return nil
}

// NewNotifier returns a RedisNotifier when a client is given, a LogNotifier otherwise
func NewNotifier(redisClient *redis.Client) Notifier {
	if redisClient == nil {
		return LogNotifier{}
	}
	return NewRedisNotifier(redisClient)
}

// NotifyAsync sends event in the background. Failures are logged and dropped.
func NotifyAsync(n Notifier, event AccountEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := n.Notify(ctx, event); err != nil {
			zaplogger.Error("Failed to send account event", zaplogger.Fields{"type": event.Type, "error": err})
		}
	}()
}
