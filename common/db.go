package common

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	g "github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var (
	mysqlDialect  = g.Dialect("mysql")
	sqliteDialect = g.Dialect("sqlite3")
)

// Conn is satisfied by both *sqlx.DB and *sqlx.Tx, so the helpers below run
// inside or outside a transaction and still know which SQL dialect to emit.
type Conn interface {
	sqlx.ExtContext
	DriverName() string
}

// Dialect picks the goqu dialect matching the connection's driver.
func Dialect(c Conn) g.DialectWrapper {
	if c != nil && c.DriverName() == DriverSQLite {
		return sqliteDialect
	}
	return mysqlDialect
}

type QueryArg struct {
	Table   string                  // table
	Fields  []interface{}           // query fields
	Ex      []exp.Expression        // where conditions
	Order   []exp.OrderedExpression // order conditions
	GroupBy []interface{}           // group by fields
	Offset  uint                    // offset
	Limit   uint                    // limit
}

// EnumFields returns the db tags of obj's fields, for use as QueryArg.Fields.
func EnumFields(obj interface{}) []interface{} {
	rt := reflect.TypeOf(obj)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}

	var fields []interface{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if field := f.Tag.Get("db"); field != "" && field != "-" {
			fields = append(fields, field)
		}
	}

	return fields
}

// InsertCtx runs a (multi-row) INSERT built by goqu with bound args.
func InsertCtx(ctx context.Context, c Conn, table string, rows ...interface{}) (sql.Result, error) {
	query, args, err := Dialect(c).Insert(table).Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return nil, err
	}
	return c.ExecContext(ctx, query, args...)
}

func UpdateCtx(ctx context.Context, c Conn, table string, record g.Record, ex ...exp.Expression) (sql.Result, error) {
	query, args, err := Dialect(c).Update(table).Prepared(true).Set(record).Where(ex...).ToSQL()
	if err != nil {
		return nil, err
	}
	return c.ExecContext(ctx, query, args...)
}

func DeleteCtx(ctx context.Context, c Conn, table string, ex ...exp.Expression) (sql.Result, error) {
	query, args, err := Dialect(c).Delete(table).Prepared(true).Where(ex...).ToSQL()
	if err != nil {
		return nil, err
	}
	return c.ExecContext(ctx, query, args...)
}

func SelectOneCtx(ctx context.Context, c Conn, data interface{}, table string, fields []interface{}, ex ...exp.Expression) error {
	query, args, err := Dialect(c).Select(fields...).Prepared(true).From(table).Where(ex...).Limit(1).ToSQL()
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, c, data, query, args...)
}

func SelectAllCtx(ctx context.Context, c Conn, data interface{}, args QueryArg) error {
	if c == nil {
		return fmt.Errorf("invalid db")
	}
	if args.Table == "" {
		return fmt.Errorf("invalid table")
	}
	if len(args.Fields) == 0 {
		return fmt.Errorf("invalid fields")
	}
	ds := Dialect(c).Select(args.Fields...).Prepared(true).From(args.Table)
	if len(args.Ex) > 0 {
		ds = ds.Where(args.Ex...)
	}
	if len(args.GroupBy) > 0 {
		ds = ds.GroupBy(args.GroupBy...)
	}
	if len(args.Order) > 0 {
		ds = ds.Order(args.Order...)
	}
	if args.Offset > 0 {
		ds = ds.Offset(args.Offset)
	}
	if args.Limit > 0 {
		ds = ds.Limit(args.Limit)
	}
	query, qargs, err := ds.ToSQL()
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, c, data, query, qargs...)
}

func CountCtx(ctx context.Context, c Conn, table string, ex ...exp.Expression) (int, error) {
	var count int
	query, args, err := Dialect(c).Select(g.COUNT("*")).Prepared(true).From(table).Where(ex...).ToSQL()
	if err != nil {
		return 0, err
	}
	err = sqlx.GetContext(ctx, c, &count, query, args...)
	return count, err
}

// MaxIntCtx returns MAX(column), or 0 on an empty table.
func MaxIntCtx(ctx context.Context, c Conn, table, column string, ex ...exp.Expression) (int, error) {
	var max int
	ds := Dialect(c).Select(g.COALESCE(g.MAX(column), 0)).Prepared(true).From(table)
	if len(ex) > 0 {
		ds = ds.Where(ex...)
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, err
	}
	err = sqlx.GetContext(ctx, c, &max, query, args...)
	return max, err
}
