package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/common/logger"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

// RoundService answers round queries and performs the administrative reset.
type RoundService interface {
	// CurrentRound is the highest round with tickets plus one; 1 on an empty store.
	CurrentRound(ctx context.Context) (int, error)
	// LastRound is the highest round with tickets, 0 on an empty store.
	LastRound(ctx context.Context) (int, error)
	// Phase reports empty, open or drawn for round.
	Phase(ctx context.Context, round int) (string, error)
	ListAvailable(ctx context.Context, round int) ([]model.Ticket, error)
	ListSold(ctx context.Context, round int) ([]string, error)
	ListPurchasesForCustomer(ctx context.Context, customerID int64) ([]model.PurchaseDetail, error)
	GetBalance(ctx context.Context, customerID int64) (decimal.Decimal, error)
	// Reset clears tickets, purchases, prizes and draws of every round and
	// removes all non-admin customers.
	Reset(ctx context.Context) (model.ResetCounts, error)
}

type roundService struct {
	d Deps
}

func NewRoundService(d Deps) RoundService { return &roundService{d: d.normalize()} }

func (s *roundService) LastRound(ctx context.Context) (int, error) {
	n, err := model.MaxRound(ctx, s.d.DB)
	if err != nil {
		return 0, storageErr("last round", err)
	}
	return n, nil
}

func (s *roundService) CurrentRound(ctx context.Context) (int, error) {
	n, err := s.LastRound(ctx)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (s *roundService) Phase(ctx context.Context, round int) (string, error) {
	if round <= 0 {
		return "", invalid("round must be positive")
	}
	tickets, err := model.CountTickets(ctx, s.d.DB, round)
	if err != nil {
		return "", storageErr("count tickets", err)
	}
	drawn, err := model.IsRoundDrawn(ctx, s.d.DB, round)
	if err != nil {
		return "", storageErr("round drawn", err)
	}
	return state.Phase(tickets > 0, drawn), nil
}

func (s *roundService) ListAvailable(ctx context.Context, round int) ([]model.Ticket, error) {
	if round <= 0 {
		return nil, invalid("round must be positive")
	}
	list, err := model.ListTickets(ctx, s.d.DB, round, constant.TicketAvailable)
	if err != nil {
		return nil, storageErr("list available", err)
	}
	return list, nil
}

func (s *roundService) ListSold(ctx context.Context, round int) ([]string, error) {
	if round <= 0 {
		return nil, invalid("round must be positive")
	}
	list, err := model.ListTicketNumbers(ctx, s.d.DB, round, constant.TicketSold)
	if err != nil {
		return nil, storageErr("list sold", err)
	}
	return list, nil
}

func (s *roundService) ListPurchasesForCustomer(ctx context.Context, customerID int64) ([]model.PurchaseDetail, error) {
	if customerID <= 0 {
		return nil, invalid("customer id is required")
	}
	list, err := model.ListPurchasesForCustomer(ctx, s.d.DB, customerID)
	if err != nil {
		return nil, storageErr("list purchases", err)
	}
	return list, nil
}

func (s *roundService) GetBalance(ctx context.Context, customerID int64) (decimal.Decimal, error) {
	if customerID <= 0 {
		return decimal.Zero, invalid("customer id is required")
	}
	b, err := s.d.Accounts.GetBalance(ctx, customerID)
	if err != nil {
		if helper.IsNoRows(err) {
			return decimal.Zero, ErrCustomerNotFound
		}
		return decimal.Zero, storageErr("get balance", err)
	}
	return b, nil
}

func (s *roundService) Reset(ctx context.Context) (model.ResetCounts, error) {
	ctx, traceID := logger.EnsureTraceID(ctx)

	var rc model.ResetCounts
	err := withTx(ctx, s.d.DB, s.d.Options.TxTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		last, err := model.MaxRound(ctx, tx)
		if err != nil {
			return err
		}
		if rc, err = model.ResetRoundState(ctx, tx); err != nil {
			return err
		}
		audit, err := model.NewRoundAudit(last, model.AuditReset, s.d.Options.Operator, traceID, rc)
		if err != nil {
			return err
		}
		return audit.Insert(ctx, tx)
	})
	if err != nil {
		logger.ErrorCtx(ctx, "reset failed", zap.Error(err))
		return model.ResetCounts{}, err
	}

	if n, err := s.d.Cache.DelPrefix(ctx, infrds.PrefixRoundPrizes); err != nil {
		logger.WarnCtx(ctx, "prize cache eviction failed", zap.Error(err))
	} else if n > 0 {
		logger.InfoCtx(ctx, "prize cache evicted", zap.Int("keys", n))
	}

	logger.InfoCtx(ctx, "round state reset",
		zap.Int64("tickets", rc.Tickets), zap.Int64("purchases", rc.Purchases),
		zap.Int64("prizes", rc.Prizes), zap.Int64("customers", rc.Customers))
	return rc, nil
}
