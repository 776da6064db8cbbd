package model

import (
	"context"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"lotto-server/common"
	"lotto-server/common/constant"
)

const TableLotto = "lotto"

// Ticket is one sellable number of a round (table lotto).
type Ticket struct {
	ID     int64           `db:"lotto_id" json:"lotto_id"`
	Number string          `db:"number" json:"number"` // zero-padded, 6 digits
	Round  int             `db:"round" json:"round"`
	Price  decimal.Decimal `db:"price" json:"price"`
	Status string          `db:"status" json:"status"` // available | sold
}

var ticketFields = common.EnumFields(Ticket{})

// GetTicketInRound loads a ticket that belongs to round. Missing rows return sql.ErrNoRows.
func GetTicketInRound(ctx context.Context, c common.Conn, ticketID int64, round int) (*Ticket, error) {
	var t Ticket
	err := common.SelectOneCtx(ctx, c, &t, TableLotto, ticketFields, g.Ex{"lotto_id": ticketID, "round": round})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func GetTicketByID(ctx context.Context, c common.Conn, ticketID int64) (*Ticket, error) {
	var t Ticket
	if err := common.SelectOneCtx(ctx, c, &t, TableLotto, ticketFields, g.Ex{"lotto_id": ticketID}); err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkTicketSold flips available -> sold. false means another buyer got there first.
func MarkTicketSold(ctx context.Context, exec sqlx.ExtContext, ticketID int64) (bool, error) {
	res, err := exec.ExecContext(ctx, "UPDATE lotto SET status = ? WHERE lotto_id = ? AND status = ?",
		constant.TicketSold, ticketID, constant.TicketAvailable)
	if err != nil {
		return false, errors.Wrapf(err, "mark ticket %d sold", ticketID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n == 1, nil
}

// InsertTickets writes numbers as available tickets of round, batchSize rows per statement.
func InsertTickets(ctx context.Context, c common.Conn, round int, price decimal.Decimal, numbers []string, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	p := price.StringFixed(2)
	for start := 0; start < len(numbers); start += batchSize {
		end := start + batchSize
		if end > len(numbers) {
			end = len(numbers)
		}
		rows := make([]interface{}, 0, end-start)
		for _, n := range numbers[start:end] {
			rows = append(rows, g.Record{"number": n, "round": round, "price": p, "status": constant.TicketAvailable})
		}
		if _, err := common.InsertCtx(ctx, c, TableLotto, rows...); err != nil {
			return errors.Wrapf(err, "insert tickets round=%d batch@%d", round, start)
		}
	}
	return nil
}

func DeleteTicketsByRound(ctx context.Context, c common.Conn, round int) (int64, error) {
	res, err := common.DeleteCtx(ctx, c, TableLotto, g.Ex{"round": round})
	if err != nil {
		return 0, errors.Wrapf(err, "delete tickets round=%d", round)
	}
	return res.RowsAffected()
}

// ListTickets returns the tickets of round ordered by id; status "" means every status.
func ListTickets(ctx context.Context, c common.Conn, round int, status string) ([]Ticket, error) {
	ex := g.Ex{"round": round}
	if status != "" {
		ex["status"] = status
	}
	list := []Ticket{}
	err := common.SelectAllCtx(ctx, c, &list, common.QueryArg{
		Table:  TableLotto,
		Fields: ticketFields,
		Ex:     []exp.Expression{ex},
		Order:  []exp.OrderedExpression{g.C("lotto_id").Asc()},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list tickets round=%d status=%q", round, status)
	}
	return list, nil
}

// ListTicketNumbers is ListTickets projected to the number column.
func ListTicketNumbers(ctx context.Context, c common.Conn, round int, status string) ([]string, error) {
	ex := g.Ex{"round": round}
	if status != "" {
		ex["status"] = status
	}
	numbers := []string{}
	err := common.SelectAllCtx(ctx, c, &numbers, common.QueryArg{
		Table:  TableLotto,
		Fields: []interface{}{"number"},
		Ex:     []exp.Expression{ex},
		Order:  []exp.OrderedExpression{g.C("lotto_id").Asc()},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list ticket numbers round=%d", round)
	}
	return numbers, nil
}

func CountTickets(ctx context.Context, c common.Conn, round int) (int, error) {
	n, err := common.CountCtx(ctx, c, TableLotto, g.Ex{"round": round})
	return n, errors.Wrapf(err, "count tickets round=%d", round)
}

// MaxRound is the highest round that has tickets, 0 when there are none.
func MaxRound(ctx context.Context, c common.Conn) (int, error) {
	n, err := common.MaxIntCtx(ctx, c, TableLotto, "round")
	return n, errors.Wrap(err, "max round")
}

// LockMaxRound is MaxRound as a locking read. On MySQL it takes next-key
// locks on the top of the round index, so a concurrent opener waits until
// this transaction ends. SQLite transactions already run one at a time.
func LockMaxRound(ctx context.Context, c common.Conn) (int, error) {
	if c.DriverName() == common.DriverSQLite {
		return MaxRound(ctx, c)
	}
	query, args, err := common.Dialect(c).
		Select(g.COALESCE(g.MAX("round"), 0)).
		Prepared(true).
		From(TableLotto).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "build max round lock")
	}
	var n int
	err = sqlx.GetContext(ctx, c, &n, query, args...)
	return n, errors.Wrap(err, "lock max round")
}
