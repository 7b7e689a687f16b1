package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// SQLSTATE codes with a fixed domain meaning.
var codeErrors = map[string]error{
	"23505": domain.ErrAlreadyExists, // unique_violation
	"23503": domain.ErrNotFound,      // foreign_key_violation
	"23514": domain.ErrValidation,    // check_violation
	"23502": domain.ErrValidation,    // not_null_violation
	"22P02": domain.ErrBadRequest,    // invalid_text_representation
}

// Codes worth retrying: the statement may succeed once the server or the
// competing transaction is gone.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// Whole SQLSTATE classes that mean the server is unreachable or overloaded.
var transientClasses = map[string]bool{
	"08": true, // connection_exception
	"53": true, // insufficient_resources
}

// MapError annotates err with the entity and id it concerns and translates
// driver errors into domain sentinels. Context errors are never translated.
// id is printed with %v so both row uuids and systemIds read naturally.
func MapError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %v: %w", entity, id, translate(err))
}

func translate(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if sentinel, ok := codeErrors[pgErr.Code]; ok {
			return sentinel
		}
	}
	return classify(err)
}

// classify marks transient failures with domain.ErrServiceUnavailable, keeping
// err in the chain. Used directly where there is no entity to report, such
// as pool pings and transaction control.
func classify(err error) error {
	if err == nil || !transient(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
}

func transient(err error) bool {
	// context.DeadlineExceeded satisfies net.Error.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientCodes[pgErr.Code] {
			return true
		}
		return len(pgErr.Code) == 5 && transientClasses[pgErr.Code[:2]]
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
