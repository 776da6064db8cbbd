package service

import (
	"context"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/common/logger"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

// RedeemResult is a paid-out redemption.
type RedeemResult struct {
	PurchaseID int64           `json:"purchase_id"`
	CustomerID int64           `json:"cus_id"`
	Number     string          `json:"number"`
	Prize      model.Prize     `json:"prize"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// RedeemService settles a purchase against its round's prizes, at most once.
type RedeemService interface {
	// Redeem marks the purchase redeemed and credits the first matching
	// tier. Without a match the purchase is still marked and ErrNoWin is
	// returned, so a repeat call reports ErrAlreadyRedeemed.
	Redeem(ctx context.Context, purchaseID int64) (*RedeemResult, error)
}

type redeemService struct {
	d Deps
}

func NewRedeemService(d Deps) RedeemService { return &redeemService{d: d.normalize()} }

func (s *redeemService) Redeem(ctx context.Context, purchaseID int64) (out *RedeemResult, err error) {
	ctx, traceID := logger.EnsureTraceID(ctx)
	if purchaseID <= 0 {
		return nil, invalid("purchase id is required")
	}

	start := time.Now()
	tier := ""
	defer func() { metrics.RecordRedeem(resultLabel(err), tier, start) }()

	noWin := false
	err = withTx(ctx, s.d.DB, s.d.Options.TxTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		p, err := model.GetPurchase(ctx, tx, purchaseID)
		if err != nil {
			if helper.IsNoRows(err) {
				return ErrPurchaseNotFound
			}
			return err
		}
		if p.Redeemed {
			return ErrAlreadyRedeemed
		}

		drawn, err := model.IsRoundDrawn(ctx, tx, p.Round)
		if err != nil {
			return err
		}
		if state.Allow(state.Phase(true, drawn), state.ActRedeem) != nil {
			return ErrNotDrawn
		}

		ticket, err := model.GetTicketByID(ctx, tx, p.TicketID)
		if err != nil {
			if helper.IsNoRows(err) {
				return ErrTicketNotFound
			}
			return err
		}
		prizes, err := model.ListPrizes(ctx, tx, p.Round)
		if err != nil {
			return err
		}

		flipped, err := model.MarkPurchaseRedeemed(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyRedeemed
		}

		prize, ok := MatchPrize(ticket.Number, prizes)
		if !ok {
			// commit the flag, report no win after commit
			noWin = true
			return nil
		}

		after, ok, err := s.d.Accounts.AdjustBalance(ctx, tx, p.CustomerID, prize.RewardAmount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCustomerNotFound
		}

		ledger := &model.WalletLedger{
			CustomerID:   p.CustomerID,
			BizType:      constant.BalanceChangePrize,
			Amount:       prize.RewardAmount,
			BeforeAmount: after.Sub(prize.RewardAmount),
			AfterAmount:  after,
			PurchaseID:   purchaseID,
			Round:        p.Round,
			Remark:       prize.Tier + " " + ticket.Number,
			TraceID:      traceID,
		}
		if err := ledger.Insert(ctx, tx); err != nil {
			return err
		}

		if err := model.CreateOutbox(ctx, tx, model.TopicPrizeRedeemed, "redeem:"+strconv.FormatInt(purchaseID, 10), map[string]interface{}{
			"event":       "prize_redeemed",
			"purchase_id": purchaseID,
			"cus_id":      p.CustomerID,
			"round":       p.Round,
			"number":      ticket.Number,
			"tier":        prize.Tier,
			"reward":      helper.TrimDecimal(prize.RewardAmount),
			"trace_id":    traceID,
		}); err != nil {
			return err
		}

		out = &RedeemResult{PurchaseID: purchaseID, CustomerID: p.CustomerID, Number: ticket.Number, Prize: prize, NewBalance: after}
		return nil
	})

	fields := []zap.Field{zap.Int64("purchase_id", purchaseID)}
	if err != nil {
		logger.WarnCtx(ctx, "redeem rejected", append(fields, zap.String("kind", KindOf(err).String()), zap.Error(err))...)
		return nil, err
	}
	if noWin {
		logger.InfoCtx(ctx, "redeem: no matching prize", fields...)
		return nil, ErrNoWin
	}

	tier = out.Prize.Tier
	logger.InfoCtx(ctx, "prize redeemed", append(fields,
		zap.Int64("cus_id", out.CustomerID),
		zap.String("tier", tier),
		zap.String("reward", helper.TrimDecimal(out.Prize.RewardAmount)),
		zap.String("balance", helper.TrimDecimal(out.NewBalance)))...)
	return out, nil
}

// MatchPrize returns the first prize number matches, in TierOrder.
// Full tiers compare the whole number, suffix tiers its trailing digits.
func MatchPrize(number string, prizes []model.Prize) (model.Prize, bool) {
	byTier := make(map[string]model.Prize, len(prizes))
	for _, p := range prizes {
		byTier[p.Tier] = p
	}
	for _, tier := range TierOrder {
		p, ok := byTier[tier]
		if !ok || p.Number == Placeholder || p.Number == "" {
			continue
		}
		var candidate string
		switch tier {
		case TierSuffix3:
			candidate = helper.Suffix(number, 3)
		case TierSuffix2:
			candidate = helper.Suffix(number, 2)
		default:
			candidate = number
		}
		if candidate == p.Number {
			return p, true
		}
	}
	return model.Prize{}, false
}
