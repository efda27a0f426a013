package store

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, s := newRedisStore(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "eco_echo_points_u1", []byte(`{"total":10}`)))
	require.NoError(t, s.Set(ctx, "eco_echo_points_u1", []byte(`{"total":20}`)))

	got, ok, err := s.Get(ctx, "eco_echo_points_u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"total":20}`, string(got))

	raw, err := mr.Get(redisKeyPrefix + "eco_echo_points_u1")
	require.NoError(t, err)
	require.Equal(t, `{"total":20}`, raw)

	require.NoError(t, s.Remove(ctx, "eco_echo_points_u1"))
	require.NoError(t, s.Remove(ctx, "eco_echo_points_u1"))
	_, ok, err = s.Get(ctx, "eco_echo_points_u1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreListKeysStripsPrefix(t *testing.T) {
	ctx := context.Background()
	mr, s := newRedisStore(t)

	require.NoError(t, mr.Set("session:abc", "not ours"))
	for _, k := range []string{"anonymous_eco_echo_scan_history", "eco_echo_user_stats_u1"} {
		require.NoError(t, s.Set(ctx, k, []byte(`{}`)))
	}

	keys, err := s.ListKeys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"anonymous_eco_echo_scan_history", "eco_echo_user_stats_u1"}, keys)
}

func TestRedisStoreBacksRepository(t *testing.T) {
	ctx := context.Background()
	_, s := newRedisStore(t)
	repo := NewRepository(s)
	ns := ForUser("u1")

	legacy := `[{"id":"1","timestamp":"2024-05-01T10:00:00Z","itemName":"Jar","category":"Glass","ecoScore":72.5}]`
	require.NoError(t, s.Set(ctx, ns.Key(KeyScanHistory), []byte(legacy)))
	require.NoError(t, s.Set(ctx, ForUser("u2").Key(KeyScanHistory), []byte(legacy)))

	h, err := repo.History(ctx, ns)
	require.NoError(t, err)
	require.Len(t, h.Records, 1)
	require.Equal(t, 73, h.Records[0].EcoScore)

	require.NoError(t, repo.RemoveNamespace(ctx, ns))
	keys, err := s.ListKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{ForUser("u2").Key(KeyScanHistory)}, keys)
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s, err := OpenRedis(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = OpenRedis(ctx, "not a url")
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "connect", storageErr.Op)
}

func TestRedisStoreWrapsServerErrors(t *testing.T) {
	ctx := context.Background()
	mr, s := newRedisStore(t)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	mr.SetError("LOADING server is loading")

	_, _, err := s.Get(ctx, "k")
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "get", storageErr.Op)
	require.Equal(t, "k", storageErr.Key)

	require.Error(t, s.Set(ctx, "k", []byte("v")))
	_, err = s.ListKeys(ctx)
	require.Error(t, err)
}
