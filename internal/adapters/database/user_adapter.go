package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

// UserAdapter implements UserRepository
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a user by ID. An unknown ID returns a nil user and no
// error, matching the in-memory adapter.
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, args, err := a.db.Select(
		"id", "name", "email", "role", "allergies", "specialty", "created_at",
	).From("users").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build user query", err)
	}

	user := &entities.User{}
	var allergies pq.StringArray
	var specialty sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&allergies,
		&specialty,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	user.Allergies = allergies
	user.Specialty = specialty.String
	return user, nil
}

// Upsert creates or replaces a user profile.
func (a *UserAdapter) Upsert(ctx context.Context, user *entities.User) error {
	record := goqu.Record{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"allergies":  pq.Array(user.Allergies),
		"specialty":  sql.NullString{String: user.Specialty, Valid: user.Specialty != ""},
		"created_at": user.CreatedAt,
	}

	query, args, err := a.db.Insert("users").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build user upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert user", err)
	}
	return nil
}
