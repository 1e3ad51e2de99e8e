package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisForwarder republishes local notifications on a Redis channel so other
// processes sharing the same store can refresh. Delivery is best effort.
type RedisForwarder struct {
	log     *slog.Logger
	rdb     *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisForwarder(log *slog.Logger, rdb *redis.Client, channel string) *RedisForwarder {
	return &RedisForwarder{log: log, rdb: rdb, channel: channel, timeout: 2 * time.Second}
}

// Forward is meant to be passed to Broadcaster.Subscribe.
func (f *RedisForwarder) Forward(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		f.log.Error("notification encode failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.rdb.Publish(ctx, f.channel, payload).Err(); err != nil {
		f.log.Warn("notification forward failed", "channel", f.channel, "err", err)
	}
}

// Listen decodes messages arriving on the channel and hands them to fn until
// ctx is done.
func Listen[T any](ctx context.Context, log *slog.Logger, rdb *redis.Client, channel string, fn func(T)) error {
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var v T
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				log.Warn("notification decode failed", "channel", channel, "err", err)
				continue
			}
			fn(v)
		}
	}
}
