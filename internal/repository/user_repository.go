package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/health-tracker/internal/model"
	"github.com/iliyamo/health-tracker/internal/store"
	"github.com/iliyamo/health-tracker/internal/utils"
)

var ErrEmailExists = errors.New("email already exists")

// NewUser carries the registration fields. Password is plain text and is
// hashed by Create.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Username  *string
}

type UserRepo struct{ db store.Client }

func NewUserRepo(db store.Client) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user with a normalized email and returns it.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (*model.User, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return nil, err
	}
	row := store.Row{
		"id":            uuid.NewString(),
		"email":         normalizeEmail(in.Email),
		"password_hash": hash,
		"first_name":    in.FirstName,
		"last_name":     in.LastName,
		"created_at":    time.Now().UTC(),
		"updated_at":    nil,
	}
	if in.Username != nil {
		row["username"] = *in.Username
	}
	inserted, err := r.db.Insert(ctx, UsersTable, row)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailExists
		}
		return nil, storeErr("insert user", err)
	}
	var u model.User
	if err := decodeRow(inserted, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	rows, err := r.db.Select(ctx, UsersTable, store.Query{
		Filters: []store.Filter{store.Eq("email", normalizeEmail(email))},
		Limit:   1,
	})
	if err != nil {
		return nil, storeErr("get user by email", err)
	}
	return first[model.User](rows)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	rows, err := r.db.Select(ctx, UsersTable, store.Query{
		Filters: []store.Filter{store.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return first[model.User](rows)
}

// UpdateProfile applies validated profile columns to the user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, patch store.Row) (*model.User, error) {
	row := patch.Clone()
	for _, col := range []string{"id", "email", "password_hash", "created_at"} {
		delete(row, col)
	}
	row["updated_at"] = time.Now().UTC()
	rows, err := r.db.Update(ctx, UsersTable, []store.Filter{store.Eq("id", id)}, row)
	if err != nil {
		return nil, storeErr("update user", err)
	}
	return first[model.User](rows)
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
