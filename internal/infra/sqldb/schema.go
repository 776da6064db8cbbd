package sqldb

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"lotto-server/common"
	"lotto-server/common/logger"

	"go.uber.org/zap"
)

// table is one logical table rendered for both drivers. Column lists are
// shared; only the auto-increment primary key and table options differ.
type table struct {
	name    string
	columns []string
	indexes []string // "UNIQUE idx_name (cols)" or "idx_name (cols)"
}

var tables = []table{
	{
		name: "lotto",
		columns: []string{
			"number CHAR(6) NOT NULL",
			"round INT NOT NULL",
			"price DECIMAL(18,2) NOT NULL DEFAULT 0",
			"status VARCHAR(16) NOT NULL DEFAULT 'available'",
		},
		indexes: []string{
			"UNIQUE uk_lotto_round_number (round, number)",
			"idx_lotto_round_status (round, status)",
		},
	},
	{
		name: "purchase",
		columns: []string{
			"cus_id BIGINT NOT NULL",
			"lotto_id BIGINT NOT NULL",
			"round INT NOT NULL",
			"created_at BIGINT NOT NULL",
			"is_redeemed TINYINT NOT NULL DEFAULT 0",
		},
		indexes: []string{
			"UNIQUE uk_purchase_lotto (lotto_id)",
			"idx_purchase_cus (cus_id)",
			"idx_purchase_round (round)",
		},
	},
	{
		name: "prize",
		columns: []string{
			"round INT NOT NULL",
			"prize_type VARCHAR(16) NOT NULL",
			"number VARCHAR(6) NOT NULL",
			"reward_amount DECIMAL(18,2) NOT NULL",
		},
		indexes: []string{
			"UNIQUE uk_prize_round_type (round, prize_type)",
		},
	},
	{
		name: "draw_log",
		columns: []string{
			"round INT NOT NULL",
			"source VARCHAR(16) NOT NULL",
			"pool_size INT NOT NULL DEFAULT 0",
			"operator VARCHAR(64) NOT NULL DEFAULT ''",
			"trace_id VARCHAR(64) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
		},
		indexes: []string{
			"UNIQUE uk_draw_log_round (round)",
		},
	},
	{
		name: "customer",
		columns: []string{
			"fullname VARCHAR(128) NOT NULL DEFAULT ''",
			"phone VARCHAR(32) NOT NULL DEFAULT ''",
			"email VARCHAR(128) NOT NULL",
			"password VARCHAR(255) NOT NULL",
			"wallet_balance DECIMAL(18,2) NOT NULL DEFAULT 0",
			"role VARCHAR(16) NOT NULL DEFAULT 'user'",
			"created_at BIGINT NOT NULL DEFAULT 0",
			"updated_at BIGINT NOT NULL DEFAULT 0",
		},
		indexes: []string{
			"UNIQUE uk_customer_email (email)",
		},
	},
	{
		name: "wallet_ledger",
		columns: []string{
			"cus_id BIGINT NOT NULL",
			"biz_type INT NOT NULL",
			"biz_type_str VARCHAR(16) NOT NULL DEFAULT ''",
			"amount DECIMAL(18,2) NOT NULL",
			"before_amount DECIMAL(18,2) NOT NULL",
			"after_amount DECIMAL(18,2) NOT NULL",
			"purchase_id BIGINT NOT NULL DEFAULT 0",
			"round INT NOT NULL DEFAULT 0",
			"remark VARCHAR(255) NOT NULL DEFAULT ''",
			"trace_id VARCHAR(64) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
		},
		indexes: []string{
			"idx_wallet_ledger_cus (cus_id)",
		},
	},
	{
		name: "outbox",
		columns: []string{
			"topic VARCHAR(64) NOT NULL",
			"biz_key VARCHAR(128) NOT NULL",
			"payload TEXT NOT NULL",
			"status TINYINT NOT NULL DEFAULT 1",
			"retry_count INT NOT NULL DEFAULT 0",
			"last_error VARCHAR(512) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
			"updated_at BIGINT NOT NULL",
		},
		indexes: []string{
			"idx_outbox_status (status, id)",
		},
	},
	{
		name: "round_audit",
		columns: []string{
			"round INT NOT NULL",
			"event_type VARCHAR(32) NOT NULL",
			"payload TEXT NOT NULL",
			"operator VARCHAR(64) NOT NULL DEFAULT ''",
			"trace_id VARCHAR(64) NOT NULL DEFAULT ''",
			"created_at BIGINT NOT NULL",
		},
		indexes: []string{
			"idx_round_audit_round (round)",
		},
	},
}

// pk names the primary key column; lotto/purchase/prize/customer keep their business names.
func pk(name string) string {
	switch name {
	case "lotto":
		return "lotto_id"
	case "purchase":
		return "purchase_id"
	case "prize":
		return "prize_id"
	case "customer":
		return "cus_id"
	}
	return "id"
}

// Statements renders the DDL for driver. Every statement is idempotent.
func Statements(driver string) []string {
	var out []string
	for _, t := range tables {
		if driver == common.DriverSQLite {
			out = append(out, sqliteTable(t)...)
		} else {
			out = append(out, mysqlTable(t))
		}
	}
	return out
}

func mysqlTable(t table) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS `" + t.name + "` (\n")
	b.WriteString("  " + pk(t.name) + " BIGINT NOT NULL AUTO_INCREMENT,\n")
	for _, c := range t.columns {
		b.WriteString("  " + c + ",\n")
	}
	b.WriteString("  PRIMARY KEY (" + pk(t.name) + ")")
	for _, idx := range t.indexes {
		if strings.HasPrefix(idx, "UNIQUE ") {
			b.WriteString(",\n  UNIQUE KEY " + strings.TrimPrefix(idx, "UNIQUE "))
		} else {
			b.WriteString(",\n  KEY " + idx)
		}
	}
	b.WriteString("\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")
	return b.String()
}

func sqliteTable(t table) []string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + t.name + " (\n")
	b.WriteString("  " + pk(t.name) + " INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, c := range t.columns {
		b.WriteString(",\n  " + c)
	}
	b.WriteString("\n)")

	out := []string{b.String()}
	for _, idx := range t.indexes {
		unique := strings.HasPrefix(idx, "UNIQUE ")
		def := strings.TrimPrefix(idx, "UNIQUE ")
		sp := strings.IndexByte(def, ' ')
		name, cols := def[:sp], strings.TrimSpace(def[sp:])
		stmt := "CREATE INDEX IF NOT EXISTS "
		if unique {
			stmt = "CREATE UNIQUE INDEX IF NOT EXISTS "
		}
		out = append(out, stmt+name+" ON "+t.name+" "+cols)
	}
	return out
}

// Migrate applies the schema for db's driver.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := Statements(db.DriverName())
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	logger.Info("schema applied", zap.String("driver", db.DriverName()), zap.Int("statements", len(stmts)))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
