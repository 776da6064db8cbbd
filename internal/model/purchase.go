package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"lotto-server/common"
	"lotto-server/common/constant"
)

const TablePurchase = "purchase"

// Purchase is the sale record of one ticket. lotto_id is unique, so a ticket
// can never carry two purchases.
type Purchase struct {
	ID         int64 `db:"purchase_id" json:"purchase_id"`
	CustomerID int64 `db:"cus_id" json:"cus_id"`
	TicketID   int64 `db:"lotto_id" json:"lotto_id"`
	Round      int   `db:"round" json:"round"`
	CreatedAt  int64 `db:"created_at" json:"created_at"` // ms
	Redeemed   bool  `db:"is_redeemed" json:"is_redeemed"`
}

var purchaseFields = common.EnumFields(Purchase{})

// PurchaseDetail is a purchase joined with its ticket number.
type PurchaseDetail struct {
	PurchaseID int64  `db:"purchase_id" json:"purchase_id"`
	TicketID   int64  `db:"lotto_id" json:"lotto_id"`
	Number     string `db:"number" json:"number"`
	Round      int    `db:"round" json:"round"`
	CreatedAt  int64  `db:"created_at" json:"created_at"`
	Redeemed   bool   `db:"is_redeemed" json:"is_redeemed"`
}

// Insert stores p and fills ID and CreatedAt.
func (p *Purchase) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	p.CreatedAt = time.Now().UnixMilli()
	res, err := exec.ExecContext(ctx,
		"INSERT INTO purchase (cus_id, lotto_id, round, created_at, is_redeemed) VALUES (?, ?, ?, ?, ?)",
		p.CustomerID, p.TicketID, p.Round, p.CreatedAt, constant.NotRedeemed)
	if err != nil {
		return errors.Wrapf(err, "insert purchase lotto_id=%d", p.TicketID)
	}
	p.Redeemed = false
	p.ID, err = res.LastInsertId()
	return errors.Wrap(err, "purchase last insert id")
}

func GetPurchase(ctx context.Context, c common.Conn, purchaseID int64) (*Purchase, error) {
	var p Purchase
	if err := common.SelectOneCtx(ctx, c, &p, TablePurchase, purchaseFields, g.Ex{"purchase_id": purchaseID}); err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkPurchaseRedeemed flips is_redeemed 0 -> 1. false means it was already redeemed.
func MarkPurchaseRedeemed(ctx context.Context, exec sqlx.ExtContext, purchaseID int64) (bool, error) {
	res, err := exec.ExecContext(ctx, "UPDATE purchase SET is_redeemed = ? WHERE purchase_id = ? AND is_redeemed = ?",
		constant.Redeemed, purchaseID, constant.NotRedeemed)
	if err != nil {
		return false, errors.Wrapf(err, "mark purchase %d redeemed", purchaseID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n == 1, nil
}

func CountPurchasesByRound(ctx context.Context, c common.Conn, round int) (int, error) {
	n, err := common.CountCtx(ctx, c, TablePurchase, g.Ex{"round": round})
	return n, errors.Wrapf(err, "count purchases round=%d", round)
}

func CountPurchasesByTicket(ctx context.Context, c common.Conn, ticketID int64) (int, error) {
	n, err := common.CountCtx(ctx, c, TablePurchase, g.Ex{"lotto_id": ticketID})
	return n, errors.Wrapf(err, "count purchases lotto_id=%d", ticketID)
}

// ListPurchasesForCustomer returns the customer's purchases, newest first.
func ListPurchasesForCustomer(ctx context.Context, exec sqlx.ExtContext, customerID int64) ([]PurchaseDetail, error) {
	query := `SELECT p.purchase_id, l.lotto_id, l.number, p.round, p.created_at, p.is_redeemed
	          FROM purchase p
	          JOIN lotto l ON p.lotto_id = l.lotto_id
	          WHERE p.cus_id = ?
	          ORDER BY p.created_at DESC, p.purchase_id DESC`

	list := []PurchaseDetail{}
	if err := sqlx.SelectContext(ctx, exec, &list, query, customerID); err != nil {
		return nil, errors.Wrapf(err, "list purchases cus_id=%d", customerID)
	}
	return list, nil
}
