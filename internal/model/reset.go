package model

import (
	"context"

	"github.com/pkg/errors"

	"lotto-server/common"
)

// ResetCounts reports how many rows a reset removed per table.
type ResetCounts struct {
	Tickets   int64 `json:"tickets"`
	Purchases int64 `json:"purchases"`
	Prizes    int64 `json:"prizes"`
	DrawLogs  int64 `json:"draw_logs"`
	Ledger    int64 `json:"ledger"`
	Customers int64 `json:"customers"`
}

// ResetRoundState clears every round-scoped table and every non-admin
// customer. Run it inside a transaction.
func ResetRoundState(ctx context.Context, c common.Conn) (ResetCounts, error) {
	var rc ResetCounts
	var err error
	for _, step := range []struct {
		table string
		n     *int64
	}{
		{TablePurchase, &rc.Purchases},
		{TableLotto, &rc.Tickets},
		{TablePrize, &rc.Prizes},
		{TableDrawLog, &rc.DrawLogs},
	} {
		res, e := common.DeleteCtx(ctx, c, step.table)
		if e != nil {
			return rc, errors.Wrapf(e, "reset %s", step.table)
		}
		*step.n, _ = res.RowsAffected()
	}
	if rc.Ledger, err = DeleteLedgerOfNonAdmins(ctx, c); err != nil {
		return rc, err
	}
	if rc.Customers, err = DeleteNonAdminCustomers(ctx, c); err != nil {
		return rc, err
	}
	return rc, nil
}
