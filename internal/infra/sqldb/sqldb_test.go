package sqldb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotto-server/common"
)

func TestStatementsMySQL(t *testing.T) {
	stmts := Statements(common.DriverMySQL)
	require.Len(t, stmts, len(tables))
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS `lotto`")
	assert.Contains(t, stmts[0], "lotto_id BIGINT NOT NULL AUTO_INCREMENT")
	assert.Contains(t, stmts[0], "UNIQUE KEY uk_lotto_round_number (round, number)")
}

func TestStatementsSQLite(t *testing.T) {
	stmts := Statements(common.DriverSQLite)
	var uniques int
	for _, s := range stmts {
		if strings.HasPrefix(s, "CREATE UNIQUE INDEX") {
			uniques++
		}
	}
	// lotto, purchase, prize, draw_log, customer
	assert.Equal(t, 5, uniques)
}

func TestMigrateAndDuplicateKey(t *testing.T) {
	db, err := common.InitDB(common.DriverSQLite, filepath.Join(t.TempDir(), "lotto.db"), 1, 1)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	// idempotent
	require.NoError(t, Migrate(ctx, db))

	_, err = db.ExecContext(ctx, "INSERT INTO draw_log (round, source, created_at) VALUES (?, ?, ?)", 1, "issued", 1)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO draw_log (round, source, created_at) VALUES (?, ?, ?)", 1, "issued", 2)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(assert.AnError))
}
