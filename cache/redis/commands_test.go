package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityhub/platform/cache"
)

const (
	testKey1     = "test:key:1"
	testKey2     = "test:key:2"
	testValue    = "value"
	testNewValue = "new-value"
)

func TestConnectionGetSet(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()

	t.Run("Miss", func(t *testing.T) {
		_, err := conn.Get(ctx, "missing")
		assert.True(t, errors.Is(err, cache.ErrNotFound))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		require.NoError(t, conn.Set(ctx, testKey1, testValue, time.Minute))

		val, err := conn.Get(ctx, testKey1)
		require.NoError(t, err)
		assert.Equal(t, testValue, val)
		assert.Equal(t, time.Minute, mr.TTL(testKey1))
	})

	t.Run("BinaryValue", func(t *testing.T) {
		payload := []byte{0x00, 0xff, 0x10}
		require.NoError(t, conn.Set(ctx, testKey2, payload, 0))

		val, err := conn.Get(ctx, testKey2)
		require.NoError(t, err)
		assert.Equal(t, payload, []byte(val))
		assert.Zero(t, mr.TTL(testKey2))
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, conn.Set(ctx, "short", testValue, time.Second))
		mr.FastForward(2 * time.Second)

		_, err := conn.Get(ctx, "short")
		assert.True(t, errors.Is(err, cache.ErrNotFound))
	})
}

func TestConnectionSetWithOptions(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()

	t.Run("IfAbsent", func(t *testing.T) {
		ok, err := conn.SetWithOptions(ctx, testKey1, testValue, SetOptions{IfAbsent: true, TTL: time.Minute})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = conn.SetWithOptions(ctx, testKey1, testNewValue, SetOptions{IfAbsent: true})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := mr.Get(testKey1)
		require.NoError(t, err)
		assert.Equal(t, testValue, got)
	})

	t.Run("IfPresent", func(t *testing.T) {
		ok, err := conn.SetWithOptions(ctx, "absent", testValue, SetOptions{IfPresent: true})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, mr.Exists("absent"))

		ok, err = conn.SetWithOptions(ctx, testKey1, testNewValue, SetOptions{IfPresent: true})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := mr.Get(testKey1)
		require.NoError(t, err)
		assert.Equal(t, testNewValue, got)
	})

	t.Run("ConflictingModes", func(t *testing.T) {
		_, err := conn.SetWithOptions(ctx, testKey1, testValue, SetOptions{IfAbsent: true, IfPresent: true})
		var opErr *cache.OperationError
		assert.True(t, errors.As(err, &opErr))
	})
}

func TestConnectionKeyspace(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("app:a", "1"))
	require.NoError(t, mr.Set("app:b", "2"))
	require.NoError(t, mr.Set("other:c", "3"))

	t.Run("Exists", func(t *testing.T) {
		n, err := conn.Exists(ctx, "app:a", "app:b", "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Keys", func(t *testing.T) {
		keys, err := conn.Keys(ctx, "app:*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"app:a", "app:b"}, keys)
	})

	t.Run("ExpireAndTTL", func(t *testing.T) {
		ttl, err := conn.TTL(ctx, "app:a")
		require.NoError(t, err)
		assert.Equal(t, cache.NoExpiryTTL, ttl)

		ok, err := conn.Expire(ctx, "app:a", 30*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		ttl, err = conn.TTL(ctx, "app:a")
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, ttl)

		ok, err = conn.Expire(ctx, "missing", time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		ttl, err = conn.TTL(ctx, "missing")
		require.NoError(t, err)
		assert.Equal(t, cache.KeyMissingTTL, ttl)
	})

	t.Run("Del", func(t *testing.T) {
		n, err := conn.Del(ctx, "app:a", "missing")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = conn.Del(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("FlushDB", func(t *testing.T) {
		require.NoError(t, conn.FlushDB(ctx))
		assert.Empty(t, mr.Keys())
	})
}

func TestConnectionHashes(t *testing.T) {
	conn, _ := setupConnection(t)
	ctx := context.Background()

	n, err := conn.HSet(ctx, "h", "name", "ada", "role", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	val, err := conn.HGet(ctx, "h", "name")
	require.NoError(t, err)
	assert.Equal(t, "ada", val)

	_, err = conn.HGet(ctx, "h", "missing")
	assert.True(t, errors.Is(err, cache.ErrNotFound))

	all, err := conn.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "ada", "role": "admin"}, all)

	n, err = conn.HDel(ctx, "h", "role", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConnectionSets(t *testing.T) {
	conn, _ := setupConnection(t)
	ctx := context.Background()

	n, err := conn.SAdd(ctx, "s", "a", "b", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	members, err := conn.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	n, err = conn.SRem(ctx, "s", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	members, err = conn.SMembers(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestConnectionLists(t *testing.T) {
	conn, _ := setupConnection(t)
	ctx := context.Background()

	_, err := conn.RPush(ctx, "l", "b", "c")
	require.NoError(t, err)
	n, err := conn.LPush(ctx, "l", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	vals, err := conn.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, vals)

	first, err := conn.LPop(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, "a", first)

	last, err := conn.RPop(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, "c", last)

	_, err = conn.LPop(ctx, "empty")
	assert.True(t, errors.Is(err, cache.ErrNotFound))
}

func TestConnectionSortedSets(t *testing.T) {
	conn, _ := setupConnection(t)
	ctx := context.Background()

	n, err := conn.ZAdd(ctx, "z",
		ZMember{Score: 3, Member: "c"},
		ZMember{Score: 1, Member: "a"},
		ZMember{Score: 2, Member: "b"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	members, err := conn.ZRange(ctx, "z", 0, -1, ZRangeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []ZMember{{Member: "a"}, {Member: "b"}, {Member: "c"}}, members)

	members, err = conn.ZRange(ctx, "z", 0, 1, ZRangeOptions{WithScores: true, Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, []ZMember{{Score: 3, Member: "c"}, {Score: 2, Member: "b"}}, members)

	n, err = conn.ZRem(ctx, "z", "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConnectionMulti(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()

	cmds, err := conn.Multi(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, testKey1, testValue, 0)
		pipe.Incr(ctx, "counter")
		pipe.Incr(ctx, "counter")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, int64(2), cmds[2].(*redis.IntCmd).Val())

	got, err := mr.Get(testKey1)
	require.NoError(t, err)
	assert.Equal(t, testValue, got)
}

func TestConnectionTx(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("balance", "10"))

	err := conn.Tx(ctx, func(tx *redis.Tx) error {
		balance, err := tx.Get(ctx, "balance").Int()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, "balance", balance+5, 0)
			return nil
		})
		return err
	}, "balance")
	require.NoError(t, err)

	got, err := mr.Get("balance")
	require.NoError(t, err)
	assert.Equal(t, "15", got)
}

func TestConnectionEval(t *testing.T) {
	conn, _ := setupConnection(t)
	ctx := context.Background()

	val, err := conn.Eval(ctx, "return redis.call('INCRBY', KEYS[1], ARGV[1])", []string{"counter"}, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), val)

	val, err = conn.Eval(ctx, "return redis.call('GET', KEYS[1])", []string{"missing"})
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestConnectionServerErrorDoesNotDropConnection(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("str", "x"))

	_, err := conn.HGet(ctx, "str", "field")
	require.Error(t, err)
	assert.False(t, cache.IsConnectionError(err))
	assert.Equal(t, StateConnected, conn.State())
}

func TestConnectionRejectsNegativeTTL(t *testing.T) {
	conn, mr := setupConnection(t)
	ctx := context.Background()

	t.Run("Set", func(t *testing.T) {
		err := conn.Set(ctx, testKey1, testValue, -time.Second)
		assert.ErrorIs(t, err, cache.ErrInvalidTTL)
		assert.False(t, mr.Exists(testKey1))
	})

	t.Run("SetWithOptions", func(t *testing.T) {
		ok, err := conn.SetWithOptions(ctx, testKey1, testValue, SetOptions{TTL: -time.Second})
		assert.ErrorIs(t, err, cache.ErrInvalidTTL)
		assert.False(t, ok)
		assert.False(t, mr.Exists(testKey1))
	})

	t.Run("Expire", func(t *testing.T) {
		require.NoError(t, conn.Set(ctx, testKey2, testValue, time.Minute))

		ok, err := conn.Expire(ctx, testKey2, -time.Second)
		assert.ErrorIs(t, err, cache.ErrInvalidTTL)
		assert.False(t, ok)
		assert.Equal(t, time.Minute, mr.TTL(testKey2))
	})

	assert.Equal(t, StateConnected, conn.State())
}
