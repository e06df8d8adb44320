package postgres

import (
	"context"
	"database/sql"

	"pollbox/internal/domain/user"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	query := `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	return r.db.QueryRowContext(ctx, query, u.Username, u.Email, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE username = $1
    `, username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE email = $1
    `, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE id = $1
    `, id)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, in user.ProfileUpdate) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE users
        SET username = COALESCE($1, username),
            email    = COALESCE($2, email)
        WHERE id = $3
    `, in.Username, in.Email, id)
	return err
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u := &user.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}
