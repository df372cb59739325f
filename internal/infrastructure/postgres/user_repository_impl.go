package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/finboard/internal/domain/entity"
	"github.com/oksasatya/finboard/internal/domain/repository"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// role is nullable; COALESCE keeps an absent role distinguishable as "".
const (
	selectUser = `
		SELECT id, email, name, COALESCE(role, ''), created_at, updated_at
		FROM users
		WHERE %s = $1`

	selectUserWithSecret = `
		SELECT id, email, name, password_hash, COALESCE(role, ''), created_at, updated_at
		FROM users
		WHERE email = $1`

	// an empty role is stored as NULL, like rows written before the role column existed
	upsertUser = `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, updated_at = now()
		RETURNING id, created_at, updated_at`
)

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, fmt.Sprintf(selectUser, "email"), email)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, fmt.Sprintf(selectUser, "id"), id)
}

func (r *UserRepository) FindByEmailWithSecret(ctx context.Context, email string) (*entity.User, error) {
	u := &entity.User{}
	var role string
	row := r.db.QueryRow(ctx, selectUserWithSecret, email)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.Role = entity.Role(role)
	return u, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*entity.User, error) {
	u := &entity.User{}
	var role string
	row := r.db.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.Role = entity.Role(role)
	return u, nil
}

func (r *UserRepository) UpsertByEmail(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRow(ctx, upsertUser, u.Email, u.Name, u.PasswordHash, string(u.Role))
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return fmt.Errorf("query user: %w", err)
}

var _ repository.UserRepository = (*UserRepository)(nil)
