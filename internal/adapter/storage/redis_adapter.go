package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/acme-warehouse/internal/core/domain"
)

const (
	requestKeyPrefix  = "acme:request:"
	requestKeyTTL     = 24 * time.Hour
	eventBacklogKey   = "acme:orders:placed:backlog"
	eventBacklogLimit = 1000
)

// publishEventScript appends the event to a capped backlog and publishes it,
// so a subscriber that reconnects can catch up from the list.
var publishEventScript = redis.NewScript(`
local backlog = KEYS[1]
local channel = ARGV[1]
local payload = ARGV[2]
local limit = tonumber(ARGV[3])

redis.call('RPUSH', backlog, payload)
redis.call('LTRIM', backlog, -limit, -1)
return redis.call('PUBLISH', channel, payload)
`)

type RedisAdapter struct {
	client  *redis.Client
	channel string
}

func NewRedisAdapter(client *redis.Client, channel string) *RedisAdapter {
	return &RedisAdapter{client: client, channel: channel}
}

func (r *RedisAdapter) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, requestKeyPrefix+key, 1, requestKeyTTL).Result()
	if err != nil {
		return false, errors.Wrap(err, "claim request key")
	}
	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, key string) error {
	return errors.Wrap(r.client.Del(ctx, requestKeyPrefix+key).Err(), "release request key")
}

func (r *RedisAdapter) OrderPlaced(ctx context.Context, event domain.OrderPlaced) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	err = publishEventScript.Run(ctx, r.client, []string{eventBacklogKey}, r.channel, payload, eventBacklogLimit).Err()
	return errors.Wrap(err, "publish event")
}

// Backlog returns up to the last n published events, oldest first.
func (r *RedisAdapter) Backlog(ctx context.Context, n int64) ([]domain.OrderPlaced, error) {
	raw, err := r.client.LRange(ctx, eventBacklogKey, -n, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read backlog")
	}
	out := make([]domain.OrderPlaced, 0, len(raw))
	for _, s := range raw {
		var ev domain.OrderPlaced
		if err := json.Unmarshal([]byte(s), &ev); err != nil {
			return nil, errors.Wrap(err, "decode event")
		}
		out = append(out, ev)
	}
	return out, nil
}

// Subscribe delivers events published on the adapter's channel until ctx is done.
// Payloads that do not decode are passed to invalid and the subscription goes on.
func (r *RedisAdapter) Subscribe(ctx context.Context, handle func(domain.OrderPlaced), invalid func(payload string, err error)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.OrderPlaced
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				invalid(msg.Payload, errors.Wrap(err, "decode event"))
				continue
			}
			handle(ev)
		}
	}
}
