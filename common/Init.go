package common

import (
	"fmt"
	"strings"
	"time"

	"lotto-server/common/logger"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers itself as "sqlite"; sqlx only knows "sqlite3" by default
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// sqlite pragmas applied when the DSN carries none: immediate write locks so
// concurrent transactions queue on the busy timeout instead of failing on upgrade.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"

// InitDB opens the master database. driver is "mysql" or "sqlite".
func InitDB(driver, dsn string, maxIdleConn, maxOpenConn int) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL:
		return initMySQL(dsn, maxIdleConn, maxOpenConn)
	case DriverSQLite:
		return initSQLite(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver: %q", driver)
}

func initMySQL(dsn string, maxIdleConn, maxOpenConn int) (*sqlx.DB, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	// per-connection session variable, shortens lock waits on hot tickets
	if _, ok := cfg.Params["innodb_lock_wait_timeout"]; !ok {
		cfg.Params["innodb_lock_wait_timeout"] = "5"
	}

	db, err := sqlx.Connect(DriverMySQL, cfg.FormatDSN())
	if err != nil {
		logger.Error("InitDB sqlx.Connect failed", zap.String("driver", DriverMySQL), zap.Error(err))
		return nil, err
	}

	if maxOpenConn > 0 {
		db.SetMaxOpenConns(maxOpenConn)
	}
	if maxIdleConn > 0 {
		db.SetMaxIdleConns(maxIdleConn)
	}
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initSQLite(dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?" + sqlitePragmas
	}

	db, err := sqlx.Connect(DriverSQLite, dsn)
	if err != nil {
		logger.Error("InitDB sqlx.Connect failed", zap.String("driver", DriverSQLite), zap.Error(err))
		return nil, err
	}
	// one writer at a time; transactions hold the only connection until commit
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}
