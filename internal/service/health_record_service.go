// Package service holds the business rules for health records: owner
// scoping, field shaping and event publication. Storage access goes through
// repository.OwnedRecordStore so every operation is bound to its caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/health-tracker/internal/model"
	"github.com/iliyamo/health-tracker/internal/queue"
	"github.com/iliyamo/health-tracker/internal/repository"
	"github.com/iliyamo/health-tracker/internal/store"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the caller. The two cases are not distinguished.
var ErrNotFound = fmt.Errorf("health record not found: %w", repository.ErrNotFound)

// EventPublisher receives record lifecycle events. Publishing is best effort
// and never fails a request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.RecordEvent) error
}

// Owners hands out per-owner record stores.
type Owners interface {
	ForOwner(ownerID string) repository.OwnedRecordStore
}

type HealthRecordService struct {
	records        Owners
	events         EventPublisher
	log            *slog.Logger
	publishTimeout time.Duration
}

// NewHealthRecordService wires the service. events may be nil.
func NewHealthRecordService(records Owners, events EventPublisher, log *slog.Logger) *HealthRecordService {
	if log == nil {
		log = slog.Default()
	}
	return &HealthRecordService{records: records, events: events, log: log, publishTimeout: 5 * time.Second}
}

// Create stores a new record owned by ownerID. Caller supplied identity and
// timestamp columns are ignored.
func (s *HealthRecordService) Create(ctx context.Context, ownerID string, fields map[string]any) (*model.HealthRecord, error) {
	rec, err := s.records.ForOwner(ownerID).Create(ctx, store.Row(fields))
	if err != nil {
		s.log.ErrorContext(ctx, "create health record failed", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to create health record: %w", err)
	}
	s.publish(ctx, queue.RecordCreated, rec)
	return rec, nil
}

// FindAllForOwner lists ownerID's records, newest first. The result is
// never nil.
func (s *HealthRecordService) FindAllForOwner(ctx context.Context, ownerID string) ([]model.HealthRecord, error) {
	recs, err := s.records.ForOwner(ownerID).List(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "list health records failed", "user_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to fetch health records: %w", err)
	}
	if recs == nil {
		recs = []model.HealthRecord{}
	}
	return recs, nil
}

// FindOneForOwner returns the record if it exists and belongs to ownerID.
func (s *HealthRecordService) FindOneForOwner(ctx context.Context, ownerID, recordID string) (*model.HealthRecord, error) {
	rec, err := s.records.ForOwner(ownerID).Get(ctx, recordID)
	if err != nil {
		return nil, s.wrap(ctx, "fetch", ownerID, recordID, err)
	}
	return rec, nil
}

// UpdateForOwner merges patch into the owned record. An empty patch only
// advances updated_at.
func (s *HealthRecordService) UpdateForOwner(ctx context.Context, ownerID, recordID string, patch map[string]any) (*model.HealthRecord, error) {
	rec, err := s.records.ForOwner(ownerID).Update(ctx, recordID, store.Row(patch))
	if err != nil {
		return nil, s.wrap(ctx, "update", ownerID, recordID, err)
	}
	s.publish(ctx, queue.RecordUpdated, rec)
	return rec, nil
}

// RemoveForOwner deletes the owned record and returns what was deleted.
func (s *HealthRecordService) RemoveForOwner(ctx context.Context, ownerID, recordID string) (*model.HealthRecord, error) {
	rec, err := s.records.ForOwner(ownerID).Delete(ctx, recordID)
	if err != nil {
		return nil, s.wrap(ctx, "delete", ownerID, recordID, err)
	}
	s.publish(ctx, queue.RecordDeleted, rec)
	return rec, nil
}

func (s *HealthRecordService) wrap(ctx context.Context, op, ownerID, recordID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	s.log.ErrorContext(ctx, op+" health record failed", "user_id", ownerID, "record_id", recordID, "error", err)
	return fmt.Errorf("failed to %s health record: %w", op, err)
}

// publish sends the event on its own goroutine with a context detached from
// the request, bounded by publishTimeout.
func (s *HealthRecordService) publish(ctx context.Context, typ queue.EventType, rec *model.HealthRecord) {
	if s.events == nil {
		return
	}
	ev := queue.NewRecordEvent(typ, rec.UserID, rec.RecordID, time.Now())
	bg := context.WithoutCancel(ctx)
	go func() {
		pctx, cancel := context.WithTimeout(bg, s.publishTimeout)
		defer cancel()
		if err := s.events.Publish(pctx, ev); err != nil {
			s.log.WarnContext(pctx, "publish record event failed", "type", ev.Type, "record_id", ev.RecordID, "error", err)
		}
	}()
}
