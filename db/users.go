package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const insertUserSQL = `
    INSERT INTO users (email, hashed_password)
    VALUES ($1, $2)
    RETURNING id, email, hashed_password, created_at
`

// CreateUser inserts a new account. Returns ErrDuplicateEmail when the email
// is already registered.
func (s *Store) CreateUser(ctx context.Context, email, hashedPassword string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, insertUserSQL, email, hashedPassword).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

const userByEmailSQL = `
    SELECT id, email, hashed_password, created_at
    FROM users
    WHERE email = $1
`

// UserByEmail looks up an account by email. Returns ErrNotFound when absent.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, userByEmailSQL, email).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userByIDSQL = `
    SELECT id, email, hashed_password, created_at
    FROM users
    WHERE id = $1
`

// UserByID looks up an account by id. Returns ErrNotFound when absent.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, userByIDSQL, id).Scan(
		&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
