// Package intake is the Redis-backed edge of the world server: a
// durable command queue remote gateways push into, a per-face publish
// channel for change-sets, and a world-state snapshot cache slow
// subscribers reconcile from after dropping intermediate change-sets.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/sphericsim/worldcore/internal/command"
)

// Redis manages the Redis connection. A nil client (empty address) puts
// the world server in in-memory mode: queue pops return nothing and
// publishes are dropped.
type Redis struct {
	client *redis.Client
	world  string
}

// NewRedis connects to Redis. An empty address yields a disconnected
// handle.
func NewRedis(addr, worldName string) (*Redis, error) {
	if addr == "" {
		return &Redis{world: worldName}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	slog.Info("connected to Redis")
	return &Redis{client: client, world: worldName}, nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// IsConnected reports whether Redis is attached.
func (r *Redis) IsConnected() bool {
	return r != nil && r.client != nil
}

func (r *Redis) commandQueueKey() string {
	return fmt.Sprintf("world:%s:commands", r.world)
}

func (r *Redis) faceChannel(face int) string {
	return fmt.Sprintf("world:%s:face:%d", r.world, face)
}

func (r *Redis) snapshotKey() string {
	return fmt.Sprintf("world:%s:snapshot", r.world)
}

// PushCommand enqueues a command from a remote gateway. Reply channels
// don't cross the wire; remote callers poll results elsewhere.
func (r *Redis) PushCommand(ctx context.Context, cmd command.Command) error {
	if !r.IsConnected() {
		return nil
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.commandQueueKey(), data).Err()
}

// PopCommands drains every queued remote command, preserving enqueue
// order. Malformed entries are logged and skipped.
func (r *Redis) PopCommands(ctx context.Context) []command.Command {
	if !r.IsConnected() {
		return nil
	}
	var out []command.Command
	for {
		data, err := r.client.LPop(ctx, r.commandQueueKey()).Bytes()
		if err != nil {
			return out // empty queue or connection trouble; either way stop draining
		}
		var cmd command.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			slog.Error("dropping malformed queued command", "error", err)
			continue
		}
		out = append(out, cmd)
	}
}

// PublishChangeSet fans one face's change-set out to remote
// subscribers.
func (r *Redis) PublishChangeSet(ctx context.Context, face int, payload []byte) error {
	if !r.IsConnected() {
		return nil
	}
	return r.client.Publish(ctx, r.faceChannel(face), payload).Err()
}

// SetSnapshot caches the latest full-world snapshot for reconnect
// reconciliation. The world server does not call it, so the snapshot key
// holds only what an outside caller has stored.
func (r *Redis) SetSnapshot(ctx context.Context, snapshot []byte) error {
	if !r.IsConnected() {
		return nil
	}
	return r.client.Set(ctx, r.snapshotKey(), snapshot, 0).Err()
}

// GetSnapshot returns the cached snapshot, or nil when absent.
func (r *Redis) GetSnapshot(ctx context.Context) ([]byte, error) {
	if !r.IsConnected() {
		return nil, nil
	}
	data, err := r.client.Get(ctx, r.snapshotKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SubscribeFace streams a face's change-sets to a remote consumer until
// the context ends.
func (r *Redis) SubscribeFace(ctx context.Context, face int) (<-chan []byte, error) {
	if !r.IsConnected() {
		return nil, fmt.Errorf("intake: redis not connected")
	}
	sub := r.client.Subscribe(ctx, r.faceChannel(face))
	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					// Slow consumer: drop; the change-set is not resent.
				}
			}
		}
	}()
	return out, nil
}
