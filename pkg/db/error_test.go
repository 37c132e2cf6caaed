package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(&pq.Error{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: sales.payment_intent_id")))
}

func TestPGCode(t *testing.T) {
	assert.Equal(t, "", PGCode(nil))
	assert.Equal(t, "", PGCode(errors.New("boom")))
	assert.Equal(t, "40001", PGCode(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"})))
	assert.Equal(t, "55P03", PGCode(&pq.Error{Code: "55P03"}))
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestDialectNames(t *testing.T) {
	dialector, err := Dialect(Config{Type: "postgres", Host: "localhost", Port: "5432", Name: "gouache"})
	assert.NoError(t, err)
	assert.Equal(t, "postgres", dialector.Name())

	_, err = Dialect(Config{Type: "mysql"})
	assert.Error(t, err)
}
