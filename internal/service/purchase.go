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
	"lotto-server/internal/infra/sqldb"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

// PurchaseResult is what a successful purchase returns.
type PurchaseResult struct {
	Purchase   model.Purchase  `json:"purchase"`
	Ticket     model.Ticket    `json:"ticket"` // snapshot after the sale
	NewBalance decimal.Decimal `json:"new_balance"`
}

// PurchaseService sells one ticket to one customer.
type PurchaseService interface {
	// Purchase marks the ticket sold, records the purchase and debits the
	// price in one transaction. Preconditions fail in this order: ticket in
	// round, ticket available, customer exists, balance covers the price.
	Purchase(ctx context.Context, customerID, ticketID int64, round int) (*PurchaseResult, error)
}

type purchaseService struct {
	d Deps
}

func NewPurchaseService(d Deps) PurchaseService { return &purchaseService{d: d.normalize()} }

func (s *purchaseService) Purchase(ctx context.Context, customerID, ticketID int64, round int) (out *PurchaseResult, err error) {
	ctx, traceID := logger.EnsureTraceID(ctx)
	if customerID <= 0 || ticketID <= 0 || round <= 0 {
		return nil, invalid("customer id, ticket id and round are required")
	}

	start := time.Now()
	defer func() { metrics.RecordPurchase(resultLabel(err), start) }()

	fields := []zap.Field{zap.Int64("cus_id", customerID), zap.Int64("lotto_id", ticketID), zap.Int("round", round)}

	err = withTx(ctx, s.d.DB, s.d.Options.TxTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		ticket, err := model.GetTicketInRound(ctx, tx, ticketID, round)
		if err != nil {
			if helper.IsNoRows(err) {
				return ErrTicketNotFound
			}
			return err
		}
		if ticket.Status != constant.TicketAvailable {
			return ErrAlreadySold
		}

		customer, err := s.d.Accounts.GetByID(ctx, tx, customerID)
		if err != nil {
			if helper.IsNoRows(err) {
				return ErrCustomerNotFound
			}
			return err
		}
		if customer.Balance.LessThan(ticket.Price) {
			return ErrInsufficientFunds
		}

		drawn, err := model.IsRoundDrawn(ctx, tx, round)
		if err != nil {
			return err
		}
		if state.Allow(state.Phase(true, drawn), state.ActPurchase) != nil {
			return ErrRoundClosed
		}

		// conditional transitions; the reads above are advisory only
		sold, err := model.MarkTicketSold(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if !sold {
			return ErrAlreadySold
		}
		after, ok, err := s.d.Accounts.AdjustBalance(ctx, tx, customerID, ticket.Price.Neg())
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientFunds
		}

		p := &model.Purchase{CustomerID: customerID, TicketID: ticketID, Round: round}
		if err := p.Insert(ctx, tx); err != nil {
			if sqldb.IsDuplicateKey(err) {
				return ErrAlreadySold
			}
			return err
		}

		ledger := &model.WalletLedger{
			CustomerID:   customerID,
			BizType:      constant.BalanceChangePurchase,
			Amount:       ticket.Price,
			BeforeAmount: after.Add(ticket.Price),
			AfterAmount:  after,
			PurchaseID:   p.ID,
			Round:        round,
			Remark:       "ticket " + ticket.Number,
			TraceID:      traceID,
		}
		if err := ledger.Insert(ctx, tx); err != nil {
			return err
		}

		if err := model.CreateOutbox(ctx, tx, model.TopicTicketSold, "purchase:"+strconv.FormatInt(p.ID, 10), map[string]interface{}{
			"event":       "ticket_sold",
			"purchase_id": p.ID,
			"cus_id":      customerID,
			"lotto_id":    ticketID,
			"number":      ticket.Number,
			"round":       round,
			"price":       helper.TrimDecimal(ticket.Price),
			"trace_id":    traceID,
		}); err != nil {
			return err
		}

		ticket.Status = constant.TicketSold
		out = &PurchaseResult{Purchase: *p, Ticket: *ticket, NewBalance: after}
		return nil
	})
	if err != nil {
		logger.WarnCtx(ctx, "purchase rejected", append(fields, zap.String("kind", KindOf(err).String()), zap.Error(err))...)
		return nil, err
	}

	logger.InfoCtx(ctx, "ticket sold", append(fields,
		zap.Int64("purchase_id", out.Purchase.ID),
		zap.String("number", out.Ticket.Number),
		zap.String("balance", helper.TrimDecimal(out.NewBalance)))...)
	return out, nil
}
