package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/health-tracker/internal/queue"
	"github.com/iliyamo/health-tracker/internal/repository"
	"github.com/iliyamo/health-tracker/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.RecordEvent
	got    chan struct{}
	err    error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{got: make(chan struct{}, 16)}
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.RecordEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	p.got <- struct{}{}
	return p.err
}

func (p *recordingPublisher) wait(t *testing.T, n int) []queue.RecordEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.RecordEvent(nil), p.events...)
}

func newTestService(t *testing.T) (*HealthRecordService, *recordingPublisher) {
	t.Helper()
	mem := store.NewMemory(repository.TableKeys, repository.UniqueColumns)
	pub := newRecordingPublisher()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHealthRecordService(repository.NewHealthRecordRepo(mem), pub, log), pub
}

func TestListing_IsolatesOwners(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "u1", map[string]any{"weight": 70.0})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", map[string]any{"weight": 80.0})
	require.NoError(t, err)

	recs, err := svc.FindAllForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "u1", recs[0].UserID)

	none, err := svc.FindAllForOwner(ctx, "u3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCreate_OwnerWinsOverBody(t *testing.T) {
	svc, _ := newTestService(t)
	rec, err := svc.Create(context.Background(), "u1", map[string]any{"user_id": "u2", "mood": "fine"})
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.NotEmpty(t, rec.RecordID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Nil(t, rec.UpdatedAt)
}

func TestFindOne_OnlyWhenOwned(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Create(ctx, "u1", map[string]any{})
	require.NoError(t, err)

	got, err := svc.FindOneForOwner(ctx, "u1", rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, rec.RecordID, got.RecordID)

	_, err = svc.FindOneForOwner(ctx, "u2", rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.FindOneForOwner(ctx, "u1", "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdate_KeepsUnspecifiedFieldsAndAdvancesUpdatedAt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Create(ctx, "u1", map[string]any{"weight": 70.0, "mood": "ok"})
	require.NoError(t, err)

	first, err := svc.UpdateForOwner(ctx, "u1", rec.RecordID, map[string]any{"weight": 71.0})
	require.NoError(t, err)
	assert.Equal(t, 71.0, *first.Weight)
	assert.Equal(t, "ok", *first.Mood)
	require.NotNil(t, first.UpdatedAt)
	assert.False(t, first.UpdatedAt.Before(rec.CreatedAt))

	touched, err := svc.UpdateForOwner(ctx, "u1", rec.RecordID, map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, touched.UpdatedAt)
	assert.False(t, touched.UpdatedAt.Before(*first.UpdatedAt))
	assert.Equal(t, 71.0, *touched.Weight)
}

func TestUpdate_ForeignOwnerIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Create(ctx, "u1", map[string]any{"mood": "ok"})
	require.NoError(t, err)

	_, err = svc.UpdateForOwner(ctx, "u2", rec.RecordID, map[string]any{"mood": "bad"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove_ThenNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Create(ctx, "u1", map[string]any{"mood": "ok"})
	require.NoError(t, err)

	_, err = svc.RemoveForOwner(ctx, "u2", rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)

	gone, err := svc.RemoveForOwner(ctx, "u1", rec.RecordID)
	require.NoError(t, err)
	assert.Equal(t, rec.RecordID, gone.RecordID)

	_, err = svc.FindOneForOwner(ctx, "u1", rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateForOwner(ctx, "u1", rec.RecordID, map[string]any{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.RemoveForOwner(ctx, "u1", rec.RecordID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := svc.Create(ctx, "u1", map[string]any{})
		require.NoError(t, err)
		ids = append(ids, rec.RecordID)
	}
	recs, err := svc.FindAllForOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{recs[0].RecordID, recs[1].RecordID, recs[2].RecordID})
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].CreatedAt.After(recs[i-1].CreatedAt))
	}
}

func TestMutations_PublishEvents(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	rec, err := svc.Create(ctx, "u1", map[string]any{})
	require.NoError(t, err)
	_, err = svc.UpdateForOwner(ctx, "u1", rec.RecordID, map[string]any{"mood": "ok"})
	require.NoError(t, err)
	_, err = svc.RemoveForOwner(ctx, "u1", rec.RecordID)
	require.NoError(t, err)

	events := pub.wait(t, 3)
	types := map[queue.EventType]bool{}
	for _, ev := range events {
		types[ev.Type] = true
		assert.Equal(t, rec.RecordID, ev.RecordID)
		assert.Equal(t, "u1", ev.UserID)
	}
	assert.Equal(t, map[queue.EventType]bool{queue.RecordCreated: true, queue.RecordUpdated: true, queue.RecordDeleted: true}, types)
}

func TestPublishFailure_DoesNotFailRequest(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")
	_, err := svc.Create(context.Background(), "u1", map[string]any{})
	require.NoError(t, err)
	pub.wait(t, 1)
}

type brokenStore struct{ store.Client }

func (brokenStore) Insert(context.Context, string, store.Row) (store.Row, error) {
	return nil, &store.Error{Op: "insert", Table: "health_records", Status: 400, Message: "null value in column violates not-null constraint"}
}

func TestCreate_StoreRejection(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewHealthRecordService(repository.NewHealthRecordRepo(brokenStore{}), nil, log)
	_, err := svc.Create(context.Background(), "u1", map[string]any{})
	require.Error(t, err)
	var se *store.Error
	assert.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), "failed to create health record")
	assert.Contains(t, err.Error(), "not-null constraint")
	assert.False(t, errors.Is(err, ErrNotFound))
}
