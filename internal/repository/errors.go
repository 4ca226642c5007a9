package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tutorly-backend/internal/apperr"
)

// SQLSTATE codes that mean the store refused the operation for this caller.
const (
	sqlStateInsufficientPrivilege = "42501"
	sqlStateInvalidAuthorization  = "28000"
	sqlStateInvalidPassword       = "28P01"
)

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Wrap(apperr.KindNotFound, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateInsufficientPrivilege, sqlStateInvalidAuthorization, sqlStateInvalidPassword:
			return apperr.Wrap(apperr.KindPersistenceDenied, op, err)
		}
	}

	return apperr.Wrap(apperr.KindPersistenceFailed, op, err)
}
