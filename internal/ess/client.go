// Package ess implements the Ephemeral State Store: a Redis-backed
// key/value service with per-key expiry, atomic create-if-absent, sets,
// pipelined writes, and pub/sub channels (SPEC_FULL §4.1).
//
// Connection pooling, retry backoff and scan-safe pattern deletion mirror
// the teacher's Redis cache client; the difference is surface area — this
// client additionally exposes hashes, sets, pipelines and pub/sub because
// the collaboration core needs all of them, where the teacher's cache only
// needed strings.
package ess

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a pooled Redis connection. New only returns a Client whose
// connection answered a ping; there is no "disabled" mode, and every
// method except Close expects a live underlying client. Redis failures
// are returned as wrapped errors (never silently no-op'd), which the
// collaboration core surfaces as ESS_CONNECTION_ERROR, because its
// correctness (locks, presence) depends on ESS in a way the teacher's
// cache-as-acceleration layer did not.
type Client struct {
	rdb *redis.Client
}

// Config configures the ESS connection.
type Config struct {
	URL          string
	ReadyTimeout time.Duration
}

// New creates a new ESS client and verifies connectivity within
// ReadyTimeout (§5: "ESS connection attempts have a 10s ready timeout").
func New(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid ESS_URL: %w", err)
	}

	opts.PoolSize = 25
	opts.MinIdleConns = 5
	opts.MaxIdleConns = 10
	opts.ConnMaxLifetime = 5 * time.Minute
	opts.ConnMaxIdleTime = 1 * time.Minute
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3
	opts.MinRetryBackoff = 8 * time.Millisecond
	opts.MaxRetryBackoff = 512 * time.Millisecond

	rdb := redis.NewClient(opts)

	timeout := cfg.ReadyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping ESS: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Ping checks liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Raw exposes the underlying redis.Client for components (pub/sub, pipeline)
// that need direct access beyond this wrapper's surface.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// GetString reads a string key.
func (c *Client) GetString(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getString %s: %w", key, err)
	}
	return val, true, nil
}

// SetStringOpts controls setString behavior.
type SetStringOpts struct {
	CreateOnlyIfAbsent bool
}

// SetString writes a string key with TTL. When opts.CreateOnlyIfAbsent is
// set, it uses SETNX and returns ok=false without error if the key already
// existed — the sole race-free primitive lock acquisition relies on.
func (c *Client) SetString(ctx context.Context, key, value string, ttl time.Duration, opts SetStringOpts) (bool, error) {
	if opts.CreateOnlyIfAbsent {
		ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("setString(nx) %s: %w", key, err)
		}
		return ok, nil
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, fmt.Errorf("setString %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and writes it as a string key, honoring
// createOnlyIfAbsent the same way SetString does.
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration, opts SetStringOpts) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.SetString(ctx, key, string(data), ttl, opts)
}

// GetJSON reads a string key and unmarshals it into target.
func (c *Client) GetJSON(ctx context.Context, key string, target interface{}) (bool, error) {
	val, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(val), target); err != nil {
		return true, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// HashSet writes a whole hash (a map of fields) with a TTL applied via a
// pipelined HSET + EXPIRE, since Redis hashes don't take a TTL directly.
func (c *Client) HashSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, toAnySlice(fields))
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hashSet %s: %w", key, err)
	}
	return nil
}

// HashGetAll reads every field of a hash.
func (c *Client) HashGetAll(ctx context.Context, key string) (map[string]string, bool, error) {
	val, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("hashGetAll %s: %w", key, err)
	}
	if len(val) == 0 {
		return nil, false, nil
	}
	return val, true, nil
}

// HashGet reads one field of a hash.
func (c *Client) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := c.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hashGet %s.%s: %w", key, field, err)
	}
	return val, true, nil
}

// SetAdd adds a member to a set.
func (c *Client) SetAdd(ctx context.Context, key, member string) error {
	if err := c.rdb.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("setAdd %s: %w", key, err)
	}
	return nil
}

// SetRemove removes a member from a set.
func (c *Client) SetRemove(ctx context.Context, key, member string) error {
	if err := c.rdb.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("setRemove %s: %w", key, err)
	}
	return nil
}

// SetMembers returns every member of a set.
func (c *Client) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("setMembers %s: %w", key, err)
	}
	return members, nil
}

// KeysMatching scans for keys matching a glob pattern using SCAN cursors,
// never the blocking KEYS command — mirrors internal/cache/cache.go's
// DeletePattern iteration.
func (c *Client) KeysMatching(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("keysMatching %s: %w", pattern, err)
	}
	return keys, nil
}

// Expire sets a TTL on an existing key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// Delete removes one or more keys. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Exists reports whether a key exists.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return count > 0, nil
}

// Publish publishes a raw payload to a channel. Callers are responsible
// for swallowing the error per §4.1's "publish failures must not roll
// back the state change" contract.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// PatternSubscribe subscribes to a glob pattern (e.g. canvas:*:events) and
// returns the underlying PubSub for the caller to range over .Channel().
func (c *Client) PatternSubscribe(ctx context.Context, pattern string) *redis.PubSub {
	return c.rdb.PSubscribe(ctx, pattern)
}

// Stats reports connection pool statistics, grounded on
// internal/cache/cache.go's GetStats.
func (c *Client) Stats() map[string]string {
	s := c.rdb.PoolStats()
	return map[string]string{
		"hits":        fmt.Sprintf("%d", s.Hits),
		"misses":      fmt.Sprintf("%d", s.Misses),
		"total_conns": fmt.Sprintf("%d", s.TotalConns),
		"idle_conns":  fmt.Sprintf("%d", s.IdleConns),
		"stale_conns": fmt.Sprintf("%d", s.StaleConns),
	}
}

func toAnySlice(fields map[string]string) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
