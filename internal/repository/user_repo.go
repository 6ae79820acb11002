package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"todolist/internal/model"
)

type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// CreateUser inserts a new user and fills in id and created_at.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (username, password_hash, role)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query, u.Username, u.PasswordHash, u.Role).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		r.logger.Error("Failed to insert user", zap.Error(err), zap.String("username", u.Username))
		return err
	}
	r.logger.Info("User created", zap.Int("user_id", u.ID))
	return nil
}

// FindByUsername returns user by exact username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
        SELECT id, username, password_hash, role, created_at
        FROM users
        WHERE username = $1
    `
	return r.findOne(ctx, query, username)
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := `
        SELECT id, username, password_hash, role, created_at
        FROM users
        WHERE id = $1
    `
	return r.findOne(ctx, query, id)
}

// UpdatePassword replaces the stored hash of user id.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		r.logger.Error("Failed to update password", zap.Error(err), zap.Int("user_id", id))
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.logger.Info("Password updated", zap.Int("user_id", id))
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load user", zap.Error(err))
		return nil, err
	}
	return &u, nil
}
