package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

type userRecord struct {
	ID             int64     `db:"id"`
	Username       string    `db:"username"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *userRecord) ToUser() *models.User {
	return &models.User{
		ID:             r.ID,
		Username:       r.Username,
		HashedPassword: r.HashedPassword,
		CreatedAt:      r.CreatedAt,
	}
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, username, hashedPassword string) (*models.User, error) {
	const op = "database.postgres.UserRepository.Create"

	rec := new(userRecord)
	query := `INSERT INTO users(username, hashed_password)
		VALUES ($1, $2)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, username, hashedPassword)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrUserExists)
		}

		return nil, fmt.Errorf("%s: failed to create user record: %w", op, err)
	}

	return rec.ToUser(), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "database.postgres.UserRepository.GetByUsername"

	rec := new(userRecord)
	query := `SELECT * FROM users WHERE username = $1`

	err := r.db.GetContext(ctx, rec, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get user record: %w", op, err)
	}

	return rec.ToUser(), nil
}
