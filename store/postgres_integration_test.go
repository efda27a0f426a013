//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("ecoecho"),
		postgrescontainer.WithUsername("ecoecho"),
		postgrescontainer.WithPassword("ecoecho"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var s *PostgresStore
	deadline := time.Now().Add(30 * time.Second)
	for {
		s, err = OpenPostgres(connStr)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	return s
}

func TestPostgresStoreUpsertsAndLists(t *testing.T) {
	ctx := context.Background()
	s := startPostgres(t)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "eco_echo_points_u1", []byte(`{"total":10}`)))
	require.NoError(t, s.Set(ctx, "eco_echo_points_u1", []byte(`{"total":20}`)))
	require.NoError(t, s.Set(ctx, "anonymous_eco_echo_points", []byte(`{"total":5}`)))

	got, ok, err := s.Get(ctx, "eco_echo_points_u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"total":20}`, string(got))

	keys, err := s.ListKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"anonymous_eco_echo_points", "eco_echo_points_u1"}, keys)

	require.NoError(t, s.Remove(ctx, "eco_echo_points_u1"))
	require.NoError(t, s.Remove(ctx, "eco_echo_points_u1"))
	keys, err = s.ListKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"anonymous_eco_echo_points"}, keys)
}

func TestPostgresStoreBacksRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startPostgres(t))
	ns := ForUser("u1")

	legacy := `[{"id":"1","timestamp":"2024-05-01T10:00:00Z","itemName":"Jar","category":"Glass","ecoScore":72.5}]`
	require.NoError(t, repo.Store().Set(ctx, ns.Key(KeyScanHistory), []byte(legacy)))

	h, err := repo.History(ctx, ns)
	require.NoError(t, err)
	require.Len(t, h.Records, 1)
	require.Equal(t, 73, h.Records[0].EcoScore)

	require.NoError(t, repo.SaveHistory(ctx, ns, h))
	again, err := repo.History(ctx, ns)
	require.NoError(t, err)
	require.Equal(t, h.Records[0].ID, again.Records[0].ID)

	require.NoError(t, repo.RemoveNamespace(ctx, ns))
	keys, err := repo.Store().ListKeys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}
