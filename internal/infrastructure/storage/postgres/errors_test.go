package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"backoffice/internal/core/apperror"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "get", "Item", 1))

	err := MapError(pgx.ErrNoRows, "get", "Item", 1)
	assert.True(t, apperror.IsNotFound(err))

	err = MapError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "forms_number_key"}, "insert", "Form", 1)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	err = MapError(&pgconn.PgError{Code: codeSerializationFailure}, "update", "Form", 1)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))

	boom := errors.New("connection reset")
	err = MapError(boom, "insert", "Form", 1)
	assert.ErrorIs(t, err, boom)
	assert.False(t, apperror.IsAppError(err))
}
