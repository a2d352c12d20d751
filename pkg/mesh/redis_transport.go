package mesh

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/redis/go-redis/v9"
)

// RedisTransport backs mesh links with Redis pub/sub, an operator
// choice for multi-process deployments where components do not share
// memory. Each logical address maps to a channel name.
type RedisTransport struct {
	client  *redis.Client
	prefix  string
	pubsubs []*redis.PubSub
}

// NewRedisTransport builds a Redis-backed transport. addr is a
// host:port; channelPrefix namespaces channels so multiple deployments
// can share one Redis instance without collision.
func NewRedisTransport(addr, password string, db int, channelPrefix string) *RedisTransport {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisTransport{client: client, prefix: channelPrefix}
}

func (t *RedisTransport) channel(address string) string {
	return t.prefix + ":" + address
}

func (t *RedisTransport) Send(ctx context.Context, e Envelope) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return archerr.Wrap(archerr.Internal, "mesh.encode_failed", "failed to encode envelope for redis transport", err)
	}
	if err := t.client.Publish(ctx, t.channel(e.Target), payload).Err(); err != nil {
		return archerr.Wrap(archerr.Transport, "mesh.redis_publish_failed", fmt.Sprintf("failed to publish to %q", e.Target), err)
	}
	return nil
}

func (t *RedisTransport) Subscribe(ctx context.Context, address string) (<-chan Envelope, error) {
	ps := t.client.Subscribe(ctx, t.channel(address))
	t.pubsubs = append(t.pubsubs, ps)

	out := make(chan Envelope, 64)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var e Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (t *RedisTransport) Close() error {
	for _, ps := range t.pubsubs {
		_ = ps.Close()
	}
	return t.client.Close()
}
