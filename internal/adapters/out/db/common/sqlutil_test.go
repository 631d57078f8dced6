package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestGetRunner_FallsBackToDB(t *testing.T) {
	db := &sql.DB{}
	assert.Same(t, db, GetRunner(context.Background(), db))

	tx := &sql.Tx{}
	ctx := CtxWithTx(context.Background(), tx)
	assert.Same(t, tx, TxFromCtx(ctx))
	assert.Same(t, tx, GetRunner(ctx, db))
}
