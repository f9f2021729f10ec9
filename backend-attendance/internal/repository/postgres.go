package repository

import (
	_ "embed"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Schema is applied by the migrate command and on startup when auto-migrate is enabled
//
//go:embed schema.sql
var Schema string

const pgUniqueViolation = "23505"

// isUniqueViolation reports a unique constraint failure, optionally on a named constraint
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func spanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
