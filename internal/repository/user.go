package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
	"github.com/rocketscienceinc/dotsandboxes-backend/internal/entity"
)

type UserRepository interface {
	Save(ctx context.Context, user *entity.User) error
	FindByName(ctx context.Context, username string) (*entity.User, error)
	ReserveForGame(ctx context.Context, first, second string) error
	ReleaseFromGame(ctx context.Context, usernames ...string) error
}

type userRepository struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

func (that *userRepository) Save(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (username, in_game, created_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET in_game = excluded.in_game`

	_, err := that.conn.ExecContext(ctx, query, user.Username, user.InGame, user.CreatedAt)
	if err != nil {
		return apperror.Persistence("save user", err)
	}

	return nil
}

func (that *userRepository) FindByName(ctx context.Context, username string) (*entity.User, error) {
	query := `SELECT username, in_game, created_at FROM users WHERE username = ?`

	var user entity.User

	err := that.conn.QueryRowContext(ctx, query, username).Scan(&user.Username, &user.InGame, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, apperror.Persistence("find user", err)
	}

	return &user, nil
}

// ReserveForGame sets the in-game flag of both users in one transaction, or of neither.
func (that *userRepository) ReserveForGame(ctx context.Context, first, second string) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Persistence("begin reservation", err)
	}

	query := `UPDATE users SET in_game = 1 WHERE username IN (?, ?) AND in_game = 0`

	result, err := tx.ExecContext(ctx, query, first, second)
	if err != nil {
		_ = tx.Rollback()
		return apperror.Persistence("reserve users", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return apperror.Persistence("reserve users", err)
	}

	if affected != 2 {
		if err = tx.Rollback(); err != nil {
			return apperror.Persistence("rollback reservation", err)
		}

		return that.reservationConflict(ctx, first, second)
	}

	if err = tx.Commit(); err != nil {
		return apperror.Persistence("commit reservation", err)
	}

	return nil
}

// reservationConflict explains why a reservation didn't touch both rows.
func (that *userRepository) reservationConflict(ctx context.Context, usernames ...string) error {
	for _, username := range usernames {
		user, err := that.FindByName(ctx, username)
		if err != nil {
			return err
		}

		if user.InGame {
			return fmt.Errorf("%w: %s", apperror.ErrAlreadyInGame, username)
		}
	}

	return fmt.Errorf("%w: %s", apperror.ErrAlreadyInGame, strings.Join(usernames, ", "))
}

func (that *userRepository) ReleaseFromGame(ctx context.Context, usernames ...string) error {
	if len(usernames) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(usernames)), ", ")
	query := `UPDATE users SET in_game = 0 WHERE username IN (` + placeholders + `)`

	args := make([]any, 0, len(usernames))
	for _, username := range usernames {
		args = append(args, username)
	}

	if _, err := that.conn.ExecContext(ctx, query, args...); err != nil {
		return apperror.Persistence("release users", err)
	}

	return nil
}
