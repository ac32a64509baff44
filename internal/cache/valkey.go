package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Valkey is a thin key/value client over valkey-go.
type Valkey struct {
	client valkey.Client
}

// NewValkey connects to the Valkey server at addr.
func NewValkey(addr string) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return &Valkey{client: client}, nil
}

// Get returns the value stored under key, or ErrMiss when there is none.
func (v *Valkey) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := v.client.Do(ctx, v.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key for ttl.
func (v *Valkey) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return v.client.Do(ctx, v.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Ex(ttl).Build()).Error()
}

// Delete removes keys. Absent keys are ignored.
func (v *Valkey) Delete(ctx context.Context, keys ...string) error {
	return v.client.Do(ctx, v.client.B().Del().Key(keys...).Build()).Error()
}

// Incr atomically increments the counter under key and returns the new value.
// A missing counter starts at zero.
func (v *Valkey) Incr(ctx context.Context, key string) (int64, error) {
	return v.client.Do(ctx, v.client.B().Incr().Key(key).Build()).AsInt64()
}

// Ping checks the server is reachable.
func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Do(ctx, v.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (v *Valkey) Close() {
	v.client.Close()
}
