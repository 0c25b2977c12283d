package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tombstone is published on a document's channel when it is deleted.
const tombstone = "__deleted__"

// envelope is the stored document shape: the payload plus the revision
// token backing compare-and-swap.
type envelope struct {
	Rev  string          `json:"rev"`
	Data json.RawMessage `json:"data"`
}

// Redis adapts a Redis server to the Store contract. Compare-and-swap
// runs under WATCH so a concurrent write aborts the transaction, and
// committed snapshots fan out over a pub/sub channel per path.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// OpenRedis connects to Redis and verifies the connection. The caller
// owns the lifecycle and must Close at shutdown.
func OpenRedis(ctx context.Context, opts *redis.Options, log *zap.Logger) (*Redis, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, log: log}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func channelFor(path string) string {
	return "notify:" + path
}

// Read implements Store.
func (r *Redis) Read(ctx context.Context, path string) ([]byte, string, error) {
	raw, err := r.client.Get(ctx, path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "", fmt.Errorf("decode envelope at %s: %w", path, err)
	}
	return env.Data, env.Rev, nil
}

// Write implements Store. The key is WATCHed for the whole read-compare
// cycle; any interleaved write fails the transaction, which surfaces as
// ErrRevisionMismatch so the caller re-reads and retries.
func (r *Redis) Write(ctx context.Context, path string, data []byte, expect string) (string, error) {
	rev := uuid.NewString()
	txn := func(tx *redis.Tx) error {
		current := ""
		raw, err := tx.Get(ctx, path).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var env envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return fmt.Errorf("decode envelope at %s: %w", path, err)
			}
			current = env.Rev
		}
		if current != expect {
			return ErrRevisionMismatch
		}

		out, err := json.Marshal(envelope{Rev: rev, Data: data})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, path, out, 0)
			pipe.Publish(ctx, channelFor(path), out)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txn, path)
	if errors.Is(err, redis.TxFailedErr) {
		return "", ErrRevisionMismatch
	}
	if err != nil {
		return "", err
	}
	return rev, nil
}

// Subscribe implements Store. The current snapshot is delivered before
// the stream starts so late subscribers catch up immediately.
func (r *Redis) Subscribe(ctx context.Context, path string, fn SnapshotFunc) (func(), error) {
	sub := r.client.Subscribe(ctx, channelFor(path))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	data, rev, err := r.Read(ctx, path)
	switch {
	case err == nil:
		fn(data, rev)
	case errors.Is(err, ErrNotFound):
	default:
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			if msg.Payload == tombstone {
				fn(nil, "")
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn("discarding malformed snapshot",
					zap.String("path", path), zap.Error(err))
				continue
			}
			fn(env.Data, env.Rev)
		}
	}()

	return func() { _ = sub.Close() }, nil
}

// GenerateKey implements Store.
func (r *Redis) GenerateKey(parent string) string {
	return uuid.NewString()
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, path string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, path)
		pipe.Publish(ctx, channelFor(path), tombstone)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
