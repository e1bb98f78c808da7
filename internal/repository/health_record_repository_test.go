package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/health-tracker/internal/store"
)

func newTestRecordRepo(t *testing.T) (*HealthRecordRepo, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(TableKeys, UniqueColumns)
	repo := NewHealthRecordRepo(mem)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	n := 0
	repo.newID = func() string {
		n++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
	}
	return repo, mem
}

func TestCreate_AssignsServerColumns(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	rec, err := repo.ForOwner("u1").Create(context.Background(), store.Row{
		"weight":     70.5,
		"user_id":    "someone-else",
		"record_id":  "client-id",
		"created_at": "1999-01-01T00:00:00Z",
		"updated_at": "1999-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", rec.RecordID)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC), rec.CreatedAt)
	assert.Nil(t, rec.UpdatedAt)
	require.NotNil(t, rec.Weight)
	assert.Equal(t, 70.5, *rec.Weight)
}

func TestCreate_DoesNotMutateInput(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	fields := store.Row{"mood": "calm", "user_id": "x"}
	_, err := repo.ForOwner("u1").Create(context.Background(), fields)
	require.NoError(t, err)
	assert.Equal(t, store.Row{"mood": "calm", "user_id": "x"}, fields)
}

func TestList_OnlyOwnerNewestFirst(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	ctx := context.Background()
	u1, u2 := repo.ForOwner("u1"), repo.ForOwner("u2")

	a, err := u1.Create(ctx, store.Row{"mood": "a"})
	require.NoError(t, err)
	_, err = u2.Create(ctx, store.Row{"mood": "other"})
	require.NoError(t, err)
	b, err := u1.Create(ctx, store.Row{"mood": "b"})
	require.NoError(t, err)

	list, err := u1.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.RecordID, list[0].RecordID)
	assert.Equal(t, a.RecordID, list[1].RecordID)
	for _, r := range list {
		assert.Equal(t, "u1", r.UserID)
	}
}

func TestList_EmptyIsNonNil(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	list, err := repo.ForOwner("nobody").List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGet_ForeignAndMissingLookTheSame(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	ctx := context.Background()
	rec, err := repo.ForOwner("u1").Create(ctx, store.Row{})
	require.NoError(t, err)

	got, err := repo.ForOwner("u1").Get(ctx, rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, rec.RecordID, got.RecordID)

	_, err = repo.ForOwner("u2").Get(ctx, rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.ForOwner("u1").Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_MergesAndStamps(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	ctx := context.Background()
	owned := repo.ForOwner("u1")
	rec, err := owned.Create(ctx, store.Row{"weight": 70.0, "mood": "ok"})
	require.NoError(t, err)

	up, err := owned.Update(ctx, rec.RecordID, store.Row{"weight": 71.0, "user_id": "u2", "created_at": "x"})
	require.NoError(t, err)
	require.NotNil(t, up.Weight)
	assert.Equal(t, 71.0, *up.Weight)
	require.NotNil(t, up.Mood)
	assert.Equal(t, "ok", *up.Mood)
	assert.Equal(t, "u1", up.UserID)
	assert.Equal(t, rec.CreatedAt, up.CreatedAt)
	require.NotNil(t, up.UpdatedAt)
	assert.True(t, up.UpdatedAt.After(rec.CreatedAt))
}

func TestUpdate_NullClearsField(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	ctx := context.Background()
	owned := repo.ForOwner("u1")
	rec, err := owned.Create(ctx, store.Row{"notes": "remember"})
	require.NoError(t, err)

	up, err := owned.Update(ctx, rec.RecordID, store.Row{"notes": nil})
	require.NoError(t, err)
	assert.Nil(t, up.Notes)
}

func TestUpdate_ForeignRecordIsNotFoundAndUntouched(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	ctx := context.Background()
	rec, err := repo.ForOwner("u1").Create(ctx, store.Row{"mood": "ok"})
	require.NoError(t, err)

	_, err = repo.ForOwner("u2").Update(ctx, rec.RecordID, store.Row{"mood": "hijacked"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.ForOwner("u1").Get(ctx, rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "ok", *got.Mood)
	assert.Nil(t, got.UpdatedAt)
}

func TestDelete_ThenNotFound(t *testing.T) {
	repo, _ := newTestRecordRepo(t)
	ctx := context.Background()
	owned := repo.ForOwner("u1")
	rec, err := owned.Create(ctx, store.Row{"mood": "ok"})
	require.NoError(t, err)

	_, err = repo.ForOwner("u2").Delete(ctx, rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)

	gone, err := owned.Delete(ctx, rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, rec.RecordID, gone.RecordID)

	_, err = owned.Get(ctx, rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = owned.Delete(ctx, rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = owned.Update(ctx, rec.RecordID, store.Row{})
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingClient struct{ store.Client }

func (failingClient) Select(context.Context, string, store.Query) ([]store.Row, error) {
	return nil, &store.Error{Op: "select", Table: HealthRecordsTable, Status: 503, Message: "upstream down", Transient: true}
}

func TestList_PropagatesStoreError(t *testing.T) {
	repo := NewHealthRecordRepo(failingClient{})
	_, err := repo.ForOwner("u1").List(context.Background())
	require.Error(t, err)
	var se *store.Error
	assert.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "upstream down")
	assert.False(t, errors.Is(err, ErrNotFound))
}
