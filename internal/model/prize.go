package model

import (
	"context"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"lotto-server/common"
)

const TablePrize = "prize"

// Prize is one tier of a round's draw. Number holds the value a ticket must
// match: a full number for tier1..tier3, the trailing digits for suffix tiers.
type Prize struct {
	ID           int64           `db:"prize_id" json:"prize_id"`
	Round        int             `db:"round" json:"round"`
	Tier         string          `db:"prize_type" json:"prize_type"`
	Number       string          `db:"number" json:"number"`
	RewardAmount decimal.Decimal `db:"reward_amount" json:"reward_amount"`
}

var prizeFields = common.EnumFields(Prize{})

// InsertPrizes writes the whole batch in one statement. UNIQUE(round, prize_type)
// rejects a second batch for the same round.
func InsertPrizes(ctx context.Context, c common.Conn, prizes []Prize) error {
	if len(prizes) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(prizes))
	for _, p := range prizes {
		rows = append(rows, g.Record{
			"round":         p.Round,
			"prize_type":    p.Tier,
			"number":        p.Number,
			"reward_amount": p.RewardAmount.StringFixed(2),
		})
	}
	_, err := common.InsertCtx(ctx, c, TablePrize, rows...)
	return errors.Wrapf(err, "insert prizes round=%d", prizes[0].Round)
}

// ListPrizes returns the batch of round in insertion (tier) order.
func ListPrizes(ctx context.Context, c common.Conn, round int) ([]Prize, error) {
	list := []Prize{}
	err := common.SelectAllCtx(ctx, c, &list, common.QueryArg{
		Table:  TablePrize,
		Fields: prizeFields,
		Ex:     []exp.Expression{g.Ex{"round": round}},
		Order:  []exp.OrderedExpression{g.C("prize_id").Asc()},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list prizes round=%d", round)
	}
	return list, nil
}
