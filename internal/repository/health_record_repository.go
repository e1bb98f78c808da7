package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/health-tracker/internal/model"
	"github.com/iliyamo/health-tracker/internal/store"
)

// ServerManagedColumns are assigned by the repository and never taken from
// caller supplied fields.
var ServerManagedColumns = []string{"record_id", "user_id", "created_at", "updated_at"}

// OwnedRecordStore is the health record table seen by a single owner. Every
// call is filtered by the owner's user_id, so records of other users are
// indistinguishable from records that do not exist.
type OwnedRecordStore interface {
	// Create inserts a record owned by the owner and returns it with the
	// assigned record_id and created_at.
	Create(ctx context.Context, fields store.Row) (*model.HealthRecord, error)
	// List returns the owner's records, newest first.
	List(ctx context.Context) ([]model.HealthRecord, error)
	Get(ctx context.Context, recordID string) (*model.HealthRecord, error)
	// Update merges patch into the owned record and stamps updated_at in a
	// single filtered write.
	Update(ctx context.Context, recordID string, patch store.Row) (*model.HealthRecord, error)
	// Delete removes the owned record and returns its last state.
	Delete(ctx context.Context, recordID string) (*model.HealthRecord, error)
}

// HealthRecordRepo encapsulates access to the health_records table. It only
// hands out owner scoped views; there is no unscoped record access.
type HealthRecordRepo struct {
	db    store.Client
	now   func() time.Time
	newID func() string
}

// NewHealthRecordRepo constructs a HealthRecordRepo over the given client.
func NewHealthRecordRepo(db store.Client) *HealthRecordRepo {
	return &HealthRecordRepo{db: db, now: time.Now, newID: uuid.NewString}
}

// ForOwner returns the capability to manage ownerID's records.
func (r *HealthRecordRepo) ForOwner(ownerID string) OwnedRecordStore {
	return &ownedRecords{repo: r, ownerID: ownerID}
}

type ownedRecords struct {
	repo    *HealthRecordRepo
	ownerID string
}

func (o *ownedRecords) scope(recordID string) []store.Filter {
	return []store.Filter{store.Eq("record_id", recordID), store.Eq("user_id", o.ownerID)}
}

func (o *ownedRecords) Create(ctx context.Context, fields store.Row) (*model.HealthRecord, error) {
	row := withoutServerColumns(fields)
	row["record_id"] = o.repo.newID()
	row["user_id"] = o.ownerID
	row["created_at"] = o.repo.now().UTC()
	row["updated_at"] = nil

	inserted, err := o.repo.db.Insert(ctx, HealthRecordsTable, row)
	if err != nil {
		return nil, storeErr("insert health record", err)
	}
	var rec model.HealthRecord
	if err := decodeRow(inserted, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (o *ownedRecords) List(ctx context.Context) ([]model.HealthRecord, error) {
	rows, err := o.repo.db.Select(ctx, HealthRecordsTable, store.Query{
		Filters: []store.Filter{store.Eq("user_id", o.ownerID)},
		Order:   &store.Order{Column: "created_at", Descending: true},
	})
	if err != nil {
		return nil, storeErr("list health records", err)
	}
	return decodeRows[model.HealthRecord](rows)
}

func (o *ownedRecords) Get(ctx context.Context, recordID string) (*model.HealthRecord, error) {
	rows, err := o.repo.db.Select(ctx, HealthRecordsTable, store.Query{Filters: o.scope(recordID), Limit: 1})
	if err != nil {
		return nil, storeErr("get health record", err)
	}
	return first[model.HealthRecord](rows)
}

func (o *ownedRecords) Update(ctx context.Context, recordID string, patch store.Row) (*model.HealthRecord, error) {
	row := withoutServerColumns(patch)
	row["updated_at"] = o.repo.now().UTC()

	rows, err := o.repo.db.Update(ctx, HealthRecordsTable, o.scope(recordID), row)
	if err != nil {
		return nil, storeErr("update health record", err)
	}
	return first[model.HealthRecord](rows)
}

func (o *ownedRecords) Delete(ctx context.Context, recordID string) (*model.HealthRecord, error) {
	rows, err := o.repo.db.Delete(ctx, HealthRecordsTable, o.scope(recordID))
	if err != nil {
		return nil, storeErr("delete health record", err)
	}
	return first[model.HealthRecord](rows)
}

func withoutServerColumns(fields store.Row) store.Row {
	out := make(store.Row, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	for _, col := range ServerManagedColumns {
		delete(out, col)
	}
	return out
}
