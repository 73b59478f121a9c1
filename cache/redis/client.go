// Package redis backs the cache with a shared Redis so sessions, bans, the
// leaderboard and the announcement backlog survive restarts and are visible
// to every server node.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/duskhollow/server/cache/local"
	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key or sorted set member does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Redis connection settings. Prefix namespaces every key and
// channel so several deployments can share one Redis database.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	PoolSize    int
	DialTimeout time.Duration
}

type conn struct {
	client *goredis.Client
	prefix string
}

func (c conn) key(k string) string { return c.prefix + k }

func (c conn) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = c.prefix + k
	}
	return out
}

func dial(cfg Config) (conn, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return conn{}, err
	}
	return conn{client: client, prefix: cfg.Prefix}, nil
}

// RedisCache implements cache.Cache on a Redis client.
type RedisCache struct {
	conn
}

// NewCache connects to Redis and verifies the connection with a ping.
func NewCache(cfg Config) (*RedisCache, error) {
	c, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCache{conn: c}, nil
}

// Close releases the connection pool.
func (r *RedisCache) Close() error { return r.client.Close() }

func missing(err error) error {
	if errors.Is(err, goredis.Nil) {
		return ErrNotFound
	}
	return err
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	return v, missing(err)
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, r.keys(keys)...).Err()
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	return n > 0, err
}

// SetNX backs the scheduler's cross-node task lock.
func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.key(key), value, ttl).Result()
}

func (r *RedisCache) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, r.key(key), goredis.Z{Score: score, Member: member}).Err()
}

func (r *RedisCache) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return r.client.ZRem(ctx, r.key(key), args...).Err()
}

// ReplaceZSet swaps the whole sorted set in one MULTI/EXEC so readers never
// observe a half-built leaderboard.
func (r *RedisCache) ReplaceZSet(ctx context.Context, key string, members []local.ZMember) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, k)
		if len(members) == 0 {
			return nil
		}
		zs := make([]goredis.Z, len(members))
		for i, m := range members {
			zs[i] = goredis.Z{Score: m.Score, Member: m.Member}
		}
		p.ZAdd(ctx, k, zs...)
		return nil
	})
	return err
}

func (r *RedisCache) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]local.ZMember, error) {
	zs, err := r.client.ZRevRangeWithScores(ctx, r.key(key), start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]local.ZMember, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out[i] = local.ZMember{Member: member, Score: z.Score}
	}
	return out, nil
}

func (r *RedisCache) ZScore(ctx context.Context, key, member string) (float64, error) {
	v, err := r.client.ZScore(ctx, r.key(key), member).Result()
	return v, missing(err)
}

// PushCapped prepends values and trims the list to its newest max entries
// in a single round trip.
func (r *RedisCache) PushCapped(ctx context.Context, key string, max int64, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	k := r.key(key)
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.LPush(ctx, k, args...)
		if max > 0 {
			p.LTrim(ctx, k, 0, max-1)
		}
		return nil
	})
	return err
}

func (r *RedisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, r.key(key), start, stop).Result()
}

// RedisMessage is the message type returned by RedisPubSub.Subscribe.
// Channel has the configured prefix stripped.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisPubSub fans events out across server nodes.
type RedisPubSub struct {
	conn
}

// NewPubSub connects a dedicated client for pub/sub traffic.
func NewPubSub(cfg Config) (*RedisPubSub, error) {
	c, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPubSub{conn: c}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, r.key(channel), message).Err()
}

// Subscribe returns once Redis has confirmed the subscription, so a publish
// made right after it returns is delivered. The channel closes after cancel
// is called or ctx ends.
func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *RedisMessage, func(), error) {
	ps := r.client.Subscribe(ctx, r.keys(channels)...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	ch := make(chan *RedisMessage, 256)
	in := ps.Channel()

	go func() {
		defer close(ch)
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				m := &RedisMessage{Channel: strings.TrimPrefix(msg.Channel, r.prefix), Payload: msg.Payload}
				select {
				case ch <- m:
				case <-ctx.Done():
					_ = ps.Close()
					return
				}
			case <-ctx.Done():
				_ = ps.Close()
				return
			}
		}
	}()

	return ch, func() { _ = ps.Close() }, nil
}
