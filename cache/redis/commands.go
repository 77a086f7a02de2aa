package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/communityhub/platform/cache"
)

// SetOptions controls conditional writes in SetWithOptions.
type SetOptions struct {
	TTL       time.Duration // Zero or negative stores without expiry
	IfAbsent  bool          // NX: write only when the key does not exist
	IfPresent bool          // XX: write only when the key exists
}

// ZMember is a sorted-set member with its score.
type ZMember struct {
	Score  float64
	Member string
}

// ZRangeOptions controls ZRange.
type ZRangeOptions struct {
	WithScores bool
	Reverse    bool
}

// Get returns the string value of key, or cache.ErrNotFound when it is absent.
func (c *Connection) Get(ctx context.Context, key string) (string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}
	val, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrNotFound
	}
	return val, c.observe(err)
}

// Set stores value under key. A positive ttl sets an expiry, zero persists the key and a
// negative ttl is rejected with cache.ErrInvalidTTL.
func (c *Connection) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl < 0 {
		return cache.NewOperationError("set", key, cache.ErrInvalidTTL)
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return err
	}
	return c.observe(client.Set(ctx, key, value, ttl).Err())
}

// SetWithOptions performs a conditional write. It returns false when the NX/XX condition
// prevented the write.
func (c *Connection) SetWithOptions(ctx context.Context, key string, value any, opts SetOptions) (bool, error) {
	if opts.IfAbsent && opts.IfPresent {
		return false, cache.NewOperationError("set", key, errors.New("IfAbsent and IfPresent are mutually exclusive"))
	}
	if opts.TTL < 0 {
		return false, cache.NewOperationError("set", key, cache.ErrInvalidTTL)
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return false, err
	}

	args := redis.SetArgs{}
	if opts.TTL > 0 {
		args.TTL = opts.TTL
	}
	switch {
	case opts.IfAbsent:
		args.Mode = "NX"
	case opts.IfPresent:
		args.Mode = "XX"
	}

	err = client.SetArgs(ctx, key, value, args).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, c.observe(err)
	}
	return true, nil
}

// Del removes keys and returns how many existed.
func (c *Connection) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.Del(ctx, keys...).Result()
	return n, c.observe(err)
}

// Exists returns how many of keys exist.
func (c *Connection) Exists(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.Exists(ctx, keys...).Result()
	return n, c.observe(err)
}

// Expire sets the lifetime of key. Returns false when the key does not exist.
// A negative ttl is rejected with cache.ErrInvalidTTL.
func (c *Connection) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		return false, cache.NewOperationError("expire", key, cache.ErrInvalidTTL)
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return false, err
	}
	ok, err := client.Expire(ctx, key, ttl).Result()
	return ok, c.observe(err)
}

// TTL returns the remaining lifetime of key, cache.NoExpiryTTL for keys without an expiry
// and cache.KeyMissingTTL for absent keys.
func (c *Connection) TTL(ctx context.Context, key string) (time.Duration, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return cache.KeyMissingTTL, err
	}
	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		return cache.KeyMissingTTL, c.observe(err)
	}
	switch ttl {
	case -1:
		return cache.NoExpiryTTL, nil
	case -2:
		return cache.KeyMissingTTL, nil
	}
	return ttl, nil
}

// Keys returns all keys matching a glob pattern.
func (c *Connection) Keys(ctx context.Context, pattern string) ([]string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := client.Keys(ctx, pattern).Result()
	return keys, c.observe(err)
}

// FlushDB removes every key of the selected database.
func (c *Connection) FlushDB(ctx context.Context) error {
	client, err := c.ensure(ctx)
	if err != nil {
		return err
	}
	return c.observe(client.FlushDB(ctx).Err())
}

// HSet sets hash fields given as field/value pairs and returns how many fields were added.
func (c *Connection) HSet(ctx context.Context, key string, values ...any) (int64, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.HSet(ctx, key, values...).Result()
	return n, c.observe(err)
}

// HGet returns one hash field, or cache.ErrNotFound.
func (c *Connection) HGet(ctx context.Context, key, field string) (string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}
	val, err := client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrNotFound
	}
	return val, c.observe(err)
}

// HGetAll returns every field of a hash. An absent key yields an empty map.
func (c *Connection) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	vals, err := client.HGetAll(ctx, key).Result()
	return vals, c.observe(err)
}

// HDel removes hash fields and returns how many existed.
func (c *Connection) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.HDel(ctx, key, fields...).Result()
	return n, c.observe(err)
}

// SAdd adds members to a set and returns how many were new.
func (c *Connection) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.SAdd(ctx, key, toAny(members)...).Result()
	return n, c.observe(err)
}

// SMembers returns every member of a set. An absent key yields an empty slice.
func (c *Connection) SMembers(ctx context.Context, key string) ([]string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	members, err := client.SMembers(ctx, key).Result()
	return members, c.observe(err)
}

// SRem removes members from a set and returns how many existed.
func (c *Connection) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.SRem(ctx, key, toAny(members)...).Result()
	return n, c.observe(err)
}

// LPush prepends values to a list and returns its new length.
func (c *Connection) LPush(ctx context.Context, key string, values ...any) (int64, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.LPush(ctx, key, values...).Result()
	return n, c.observe(err)
}

// RPush appends values to a list and returns its new length.
func (c *Connection) RPush(ctx context.Context, key string, values ...any) (int64, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.RPush(ctx, key, values...).Result()
	return n, c.observe(err)
}

// LPop removes and returns the first list element, or cache.ErrNotFound for an empty list.
func (c *Connection) LPop(ctx context.Context, key string) (string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}
	val, err := client.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrNotFound
	}
	return val, c.observe(err)
}

// RPop removes and returns the last list element, or cache.ErrNotFound for an empty list.
func (c *Connection) RPop(ctx context.Context, key string) (string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}
	val, err := client.RPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrNotFound
	}
	return val, c.observe(err)
}

// LRange returns list elements between start and stop inclusive; negative indexes count from the end.
func (c *Connection) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	vals, err := client.LRange(ctx, key, start, stop).Result()
	return vals, c.observe(err)
}

// ZAdd adds scored members to a sorted set and returns how many were new.
func (c *Connection) ZAdd(ctx context.Context, key string, members ...ZMember) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	n, err := client.ZAdd(ctx, key, zs...).Result()
	return n, c.observe(err)
}

// ZRange returns members by rank between start and stop inclusive. Scores are filled only
// when opts.WithScores is set.
func (c *Connection) ZRange(ctx context.Context, key string, start, stop int64, opts ZRangeOptions) ([]ZMember, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	args := redis.ZRangeArgs{Key: key, Start: start, Stop: stop, Rev: opts.Reverse}
	if !opts.WithScores {
		members, err := client.ZRangeArgs(ctx, args).Result()
		if err != nil {
			return nil, c.observe(err)
		}
		out := make([]ZMember, len(members))
		for i, m := range members {
			out[i] = ZMember{Member: m}
		}
		return out, nil
	}

	zs, err := client.ZRangeArgsWithScores(ctx, args).Result()
	if err != nil {
		return nil, c.observe(err)
	}
	out := make([]ZMember, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out[i] = ZMember{Score: z.Score, Member: member}
	}
	return out, nil
}

// ZRem removes members from a sorted set and returns how many existed.
func (c *Connection) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.ZRem(ctx, key, toAny(members)...).Result()
	return n, c.observe(err)
}

// Publish sends message to channel and returns the number of receiving subscribers.
func (c *Connection) Publish(ctx context.Context, channel string, message any) (int64, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := client.Publish(ctx, channel, message).Result()
	return n, c.observe(err)
}

// Multi queues the commands issued by fn and executes them atomically in one round trip.
// It returns the executed commands so callers can read individual replies.
func (c *Connection) Multi(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	cmds, err := client.TxPipelined(ctx, fn)
	if errors.Is(err, redis.Nil) {
		return cmds, nil
	}
	return cmds, c.observe(err)
}

// Tx runs fn inside WATCH on keys. fn must queue its writes through tx.TxPipelined; the
// transaction aborts with redis.TxFailedErr when a watched key changed concurrently.
func (c *Connection) Tx(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	client, err := c.ensure(ctx)
	if err != nil {
		return err
	}
	return c.observe(client.Watch(ctx, fn, keys...))
}

// Eval runs a Lua script with keys and args and returns its reply.
func (c *Connection) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	val, err := client.Eval(ctx, script, keys, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, c.observe(err)
}

// Info returns the server INFO reply for the given sections.
func (c *Connection) Info(ctx context.Context, sections ...string) (string, error) {
	client, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}
	val, err := client.Info(ctx, sections...).Result()
	return val, c.observe(err)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
