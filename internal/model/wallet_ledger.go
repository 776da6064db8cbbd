package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"lotto-server/common"
	"lotto-server/common/constant"
)

const TableWalletLedger = "wallet_ledger"

// WalletLedger is the append-only record of balance changes.
// Amount is non-negative; direction follows from biz_type and before/after.
type WalletLedger struct {
	ID           int64           `db:"id" json:"id"`
	CustomerID   int64           `db:"cus_id" json:"cus_id"`
	BizType      int             `db:"biz_type" json:"biz_type"`
	BizTypeStr   string          `db:"biz_type_str" json:"biz_type_str"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	BeforeAmount decimal.Decimal `db:"before_amount" json:"before_amount"`
	AfterAmount  decimal.Decimal `db:"after_amount" json:"after_amount"`
	PurchaseID   int64           `db:"purchase_id" json:"purchase_id"`
	Round        int             `db:"round" json:"round"`
	Remark       string          `db:"remark" json:"remark"`
	TraceID      string          `db:"trace_id" json:"trace_id"`
	CreatedAt    int64           `db:"created_at" json:"created_at"`
}

// Validate checks biz_type and that before/after move in the direction the
// type implies: income adds Amount, expense subtracts it.
func (l *WalletLedger) Validate() error {
	if !constant.IsValidBalanceChangeType(l.BizType) {
		return errors.Errorf("wallet ledger: unknown biz_type %d", l.BizType)
	}
	amount := l.Amount.Abs()
	var want decimal.Decimal
	switch {
	case constant.IsIncomeType(l.BizType):
		want = l.BeforeAmount.Add(amount)
	case constant.IsExpenseType(l.BizType):
		want = l.BeforeAmount.Sub(amount)
	default:
		return nil
	}
	if !l.AfterAmount.Equal(want) {
		return errors.Errorf("wallet ledger: %s of %s from %s cannot end at %s",
			constant.GetBalanceChangeTypeDesc(l.BizType), amount.StringFixed(2),
			l.BeforeAmount.StringFixed(2), l.AfterAmount.StringFixed(2))
	}
	return nil
}

// Insert validates and appends the row; BizTypeStr is derived from BizType when empty.
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.CreatedAt = time.Now().UnixMilli()
	if l.BizTypeStr == "" {
		l.BizTypeStr = constant.GetBalanceChangeTypeDesc(l.BizType)
	}

	sqlStr := "INSERT INTO wallet_ledger (cus_id, biz_type, biz_type_str, amount, before_amount, after_amount, purchase_id, round, remark, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{
		l.CustomerID, l.BizType, l.BizTypeStr,
		l.Amount.Abs().StringFixed(2), l.BeforeAmount.StringFixed(2), l.AfterAmount.StringFixed(2),
		l.PurchaseID, l.Round, l.Remark, l.TraceID, l.CreatedAt,
	}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return errors.Wrapf(err, "insert wallet ledger cus_id=%d", l.CustomerID)
}

// ListLedger returns a customer's ledger, oldest first.
func ListLedger(ctx context.Context, c common.Conn, customerID int64) ([]WalletLedger, error) {
	list := []WalletLedger{}
	err := common.SelectAllCtx(ctx, c, &list, common.QueryArg{
		Table:  TableWalletLedger,
		Fields: common.EnumFields(WalletLedger{}),
		Ex:     []exp.Expression{g.Ex{"cus_id": customerID}},
		Order:  []exp.OrderedExpression{g.C("id").Asc()},
	})
	return list, errors.Wrapf(err, "list ledger cus_id=%d", customerID)
}

// DeleteLedgerOfNonAdmins drops the ledger of customers that a reset removes.
// Must run before DeleteNonAdminCustomers.
func DeleteLedgerOfNonAdmins(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	res, err := exec.ExecContext(ctx,
		"DELETE FROM wallet_ledger WHERE cus_id NOT IN (SELECT cus_id FROM customer WHERE role = ?)", constant.RoleAdmin)
	if err != nil {
		return 0, errors.Wrap(err, "delete non-admin ledger")
	}
	return res.RowsAffected()
}
