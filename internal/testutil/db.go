// Package testutil provides shared helpers for storage-backed tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"lotto-server/common"
	"lotto-server/internal/infra/sqldb"
)

// NewDB opens a migrated SQLite database in a per-test temp dir.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := common.InitDB(common.DriverSQLite, filepath.Join(t.TempDir(), "lotto.db"), 1, 1)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqldb.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedTickets inserts numbers as available tickets of round at price and
// returns their ids in the same order.
func SeedTickets(t testing.TB, db *sqlx.DB, round int, price string, numbers ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, len(numbers))
	for _, n := range numbers {
		res, err := db.ExecContext(ctx, "INSERT INTO lotto (number, round, price, status) VALUES (?, ?, ?, 'available')", n, round, price)
		if err != nil {
			t.Fatalf("seed ticket %s: %v", n, err)
		}
		id, _ := res.LastInsertId()
		ids = append(ids, id)
	}
	return ids
}

// SeedCustomer inserts a customer with a placeholder hash and returns its id.
func SeedCustomer(t testing.TB, db *sqlx.DB, email, balance, role string) int64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(),
		"INSERT INTO customer (fullname, phone, email, password, wallet_balance, role, created_at, updated_at) VALUES (?, '', ?, 'x', ?, ?, 0, 0)",
		email, email, balance, role)
	if err != nil {
		t.Fatalf("seed customer %s: %v", email, err)
	}
	id, _ := res.LastInsertId()
	return id
}
