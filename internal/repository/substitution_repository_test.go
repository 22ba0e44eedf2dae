package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, []byte) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }

func sampleRequests() []models.SubstitutionRequest {
	return []models.SubstitutionRequest{
		{ID: "sub-1", Timestamp: 100, Notes: "Cover Period 3", Status: models.SubstitutionStatusPending, RequesterID: "t1", RequesterName: "Teacher A", Version: 1},
		{ID: "sub-2", Timestamp: 200, Notes: "Lab session", Status: models.SubstitutionStatusAccepted, RequesterID: "t1", RequesterName: "Teacher A", AcceptedBy: "Teacher B", Version: 2},
	}
}

func TestSubstitutionRepositoryLoadAllEmpty(t *testing.T) {
	repo := NewSubstitutionRepository(kvstore.NewMemory(), nil)

	list, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSubstitutionRepositoryLoadAllMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":  `not json`,
		"object":    `{}`,
		"string":    `"[]"`,
		"null":      `null`,
		"truncated": `[{"id":"sub-1"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store := kvstore.NewMemory()
			require.NoError(t, store.Set(context.Background(), SubstitutionsKey, []byte(raw)))
			repo := NewSubstitutionRepository(store, nil)

			list, err := repo.LoadAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSubstitutionRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSubstitutionRepository(kvstore.NewMemory(), nil)

	require.NoError(t, repo.SaveAll(ctx, sampleRequests()))
	first, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(ctx, first))
	second, err := repo.LoadAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, sampleRequests(), first)
	assert.Equal(t, first, second)
}

func TestSubstitutionRepositorySaveAllEmptyRemovesKey(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	repo := NewSubstitutionRepository(store, nil)

	require.NoError(t, repo.SaveAll(ctx, nil))
	require.NoError(t, repo.SaveAll(ctx, sampleRequests()))
	require.NoError(t, repo.SaveAll(ctx, []models.SubstitutionRequest{}))

	_, err := store.Get(ctx, SubstitutionsKey)
	require.ErrorIs(t, err, kvstore.ErrNotFound)

	list, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSubstitutionRepositorySaveAllEmptyOnRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewSubstitutionRepository(kvstore.NewRedis(client), nil)

	require.NoError(t, repo.SaveAll(ctx, sampleRequests()))
	require.True(t, mr.Exists(SubstitutionsKey))

	require.NoError(t, repo.SaveAll(ctx, nil))
	assert.False(t, mr.Exists(SubstitutionsKey))
}

func TestSubstitutionRepositoryFindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewSubstitutionRepository(kvstore.NewMemory(), nil)
	require.NoError(t, repo.SaveAll(ctx, sampleRequests()))

	found, err := repo.FindByID(ctx, "sub-2")
	require.NoError(t, err)
	assert.Equal(t, "Teacher B", found.AcceptedBy)

	_, err = repo.FindByID(ctx, "sub-404")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubstitutionRepositoryMigratesLegacyRecords(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	legacy := `[
		{"id":"sub-1709542800000","subject":"Mathematics","class":"10A","time":"09:00","date":"2024-03-04","status":"Pending"},
		{"id":"sub-x","subject":"Physics","status":"Accepted","acceptedBy":"Teacher B","requesterName":"Teacher A"}
	]`
	require.NoError(t, store.Set(ctx, SubstitutionsKey, []byte(legacy)))
	repo := NewSubstitutionRepository(store, nil)

	list, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int64(1709542800000), list[0].Timestamp)
	assert.Equal(t, "Mathematics - 10A on 2024-03-04 at 09:00", list[0].Notes)
	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, "Mathematics", list[0].Subject)

	assert.Zero(t, list[1].Timestamp)
	assert.Equal(t, "Physics", list[1].Notes)
}

func TestSubstitutionRepositoryDropsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	raw := `[
		{"id":"sub-1","timestamp":1,"notes":"ok","status":"Pending","requesterId":"t1"},
		{"id":"sub-1","timestamp":2,"notes":"duplicate","status":"Pending","requesterId":"t1"},
		{"id":"sub-2","timestamp":3,"notes":"bad","status":"Declined"},
		{"id":"sub-3","timestamp":4,"notes":"bad","status":"Pending","acceptedBy":"x"},
		{"id":"sub-4","timestamp":5,"notes":"bad","status":"Accepted"},
		{"timestamp":6,"notes":"no id","status":"Pending"},
		42,
		null
	]`
	require.NoError(t, store.Set(ctx, SubstitutionsKey, []byte(raw)))
	repo := NewSubstitutionRepository(store, nil)

	list, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ok", list[0].Notes)
}

func TestSubstitutionRepositoryStoreFailure(t *testing.T) {
	repo := NewSubstitutionRepository(failingStore{err: errors.New("connection refused")}, nil)

	_, err := repo.LoadAll(context.Background())
	require.Error(t, err)
	require.Error(t, repo.SaveAll(context.Background(), sampleRequests()))
}

func TestSubstitutionRepositoryOverRedis(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := kvstore.Prefixed(kvstore.NewRedis(client), "sma:")
	repo := NewSubstitutionRepository(store, nil)

	require.NoError(t, repo.SaveAll(ctx, sampleRequests()))
	assert.True(t, srv.Exists("sma:substitutions"))

	list, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
