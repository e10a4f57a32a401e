package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NordCoder/Stockpulse/internal/domain/user"
)

const (
	codeUniqueViolation     = "23505"
	codeInvalidTextRepr     = "22P02"
	constraintUsersUsername = "users_username_key"
)

// mapErr turns driver errors into store-level sentinels; everything else is wrapped with op.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if pgErr.ConstraintName == "" || pgErr.ConstraintName == constraintUsersUsername {
				return user.ErrUsernameTaken
			}
		case codeInvalidTextRepr:
			// ids that are not UUIDs cannot name an existing identity
			return user.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
