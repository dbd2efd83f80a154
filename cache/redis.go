package cache

import (
	"context"
	"quadnav/config"
	"quadnav/models"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/zstd"
	"github.com/segmentio/encoding/json"
)

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.New("failed to connect to redis").
			WithTag("addr", cfg.Addr).
			Wrap(err)
	}

	logs.WithTag("addr", cfg.Addr).Info("connected to redis")
	return client, nil
}

// KV is the subset of the redis client used by FieldCache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// FieldCache stores flow fields in redis as zstd compressed JSON.
type FieldCache struct {
	kv  KV
	ttl time.Duration
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewFieldCache returns a cache whose entries expire after ttl. A zero ttl
// keeps entries until redis evicts them.
func NewFieldCache(kv KV, ttl time.Duration) (*FieldCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, errors.New("creating zstd encoder failed").Wrap(err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, errors.New("creating zstd decoder failed").Wrap(err)
	}

	return &FieldCache{
		kv:  kv,
		ttl: ttl,
		enc: enc,
		dec: dec,
	}, nil
}

// Get returns the flow field stored under key. A missing key is not an
// error.
func (c *FieldCache) Get(ctx context.Context, key string) (*models.FlowField, bool, error) {
	payload, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == redis.Nil:
		return nil, false, nil

	case err != nil:
		return nil, false, errors.New("reading flow field failed").
			WithTag("key", key).
			Wrap(err)
	}

	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, errors.New("decompressing flow field failed").
			WithTag("key", key).
			Wrap(err)
	}

	var field models.FlowField
	if err := json.Unmarshal(raw, &field); err != nil {
		return nil, false, errors.New("decoding flow field failed").
			WithTag("key", key).
			Wrap(err)
	}
	return &field, true, nil
}

func (c *FieldCache) Set(ctx context.Context, key string, field *models.FlowField) error {
	raw, err := json.Marshal(field)
	if err != nil {
		return errors.New("encoding flow field failed").
			WithTag("key", key).
			Wrap(err)
	}

	if err := c.kv.Set(ctx, key, c.enc.EncodeAll(raw, nil), c.ttl).Err(); err != nil {
		return errors.New("writing flow field failed").
			WithTag("key", key).
			Wrap(err)
	}
	return nil
}

// Close releases the compression resources.
func (c *FieldCache) Close() {
	c.enc.Close()
	c.dec.Close()
}
