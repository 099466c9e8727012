package ess

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient mirrors the teacher's setupRedisHubTest: a real
// redis.Client pointed at an in-memory miniredis instance, wrapped by a
// Client constructed the same way New would, minus the ParseURL step.
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return &Client{rdb: rdb}, mr
}

func TestSetStringCreateOnlyIfAbsent(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	ok, err := client.SetString(ctx, "lock:a", "owner1", time.Second, SetStringOpts{CreateOnlyIfAbsent: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetString(ctx, "lock:a", "owner2", time.Second, SetStringOpts{CreateOnlyIfAbsent: true})
	require.NoError(t, err)
	assert.False(t, ok, "second create-if-absent write must not overwrite the existing lock")

	val, found, err := client.GetString(ctx, "lock:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "owner1", val)
}

func TestHashSetAndGetAll(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	err := client.HashSet(ctx, "presence:u1", map[string]string{"userId": "u1", "isActive": "true"}, 300*time.Second)
	require.NoError(t, err)

	fields, found, err := client.HashGetAll(ctx, "presence:u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "u1", fields["userId"])
}

func TestSetAddRemoveMembers(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SetAdd(ctx, "presence:set", "u1"))
	require.NoError(t, client.SetAdd(ctx, "presence:set", "u2"))

	members, err := client.SetMembers(ctx, "presence:set")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, members)

	require.NoError(t, client.SetRemove(ctx, "presence:set", "u1"))
	members, err = client.SetMembers(ctx, "presence:set")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, members)
}

func TestKeysMatchingUsesScan(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SetAdd(ctx, "canvas:c1:presence", "u1"))
	_, err := client.SetString(ctx, "canvas:c1:conversation:v1:focus:u1", "x", time.Minute, SetStringOpts{})
	require.NoError(t, err)
	_, err = client.SetString(ctx, "canvas:c1:conversation:v2:focus:u1", "x", time.Minute, SetStringOpts{})
	require.NoError(t, err)

	keys, err := client.KeysMatching(ctx, FocusPatternForUser("c1", "u1"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestPipelineExecutesAllOps(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	err := client.Pipeline().
		HashSet(ctx, "cursor:u1", map[string]string{"x": "1"}, time.Minute).
		SetAdd(ctx, "cursors", "u1").
		Exec(ctx)
	require.NoError(t, err)

	members, err := client.SetMembers(ctx, "cursors")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, members)
}

func TestExpireAndTTLAdvance(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	_, err := client.SetString(ctx, "throttle:cursor:u1", "1", time.Second, SetStringOpts{CreateOnlyIfAbsent: true})
	require.NoError(t, err)
	assert.True(t, mr.Exists("throttle:cursor:u1"))

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("throttle:cursor:u1"))
}
