package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
)

func TestAttendanceRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository(kvstore.NewMemory(), nil)

	book, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, book)

	book["t1"] = models.TeacherAttendance{
		"2024-03-04": models.WeeklyPresence{"Mon": {Present: 2, Total: 5}},
	}
	require.NoError(t, repo.Save(ctx, book))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded["t1"]["2024-03-04"]["Mon"].Present)
}

func TestAttendanceRepositoryMalformedValue(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, AttendanceKey, []byte(`{"t1":"oops"}`)))

	book, err := NewAttendanceRepository(store, nil).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, book)
}
