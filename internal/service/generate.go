package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"lotto-server/common/helper"
	"lotto-server/common/logger"
	"lotto-server/internal/config"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
	"lotto-server/internal/state"
)

const (
	// NumberSpace is the count of 6-digit numbers, 000000..999999.
	NumberSpace = 1000000
	numberWidth = 6
)

// GenerateService fills a round with a fresh pool of unique ticket numbers.
type GenerateService interface {
	// Generate replaces the pool of round with amount unique numbers.
	Generate(ctx context.Context, round, amount int) ([]string, error)
	// OpenNextRound generates CurrentRound once the previous round is drawn.
	// amount 0 means the configured default.
	OpenNextRound(ctx context.Context, amount int) (round int, numbers []string, err error)
}

type generateService struct {
	d Deps
}

func NewGenerateService(d Deps) GenerateService { return &generateService{d: d.normalize()} }

func (s *generateService) Generate(ctx context.Context, round, amount int) ([]string, error) {
	if round <= 0 {
		return nil, invalid("round must be positive")
	}
	_, numbers, err := s.generate(ctx, round, amount)
	return numbers, err
}

func (s *generateService) OpenNextRound(ctx context.Context, amount int) (int, []string, error) {
	if amount < 0 {
		return 0, nil, invalid("amount must not be negative")
	}
	if amount == 0 {
		amount = s.d.Options.DefaultAmount
	}
	return s.generate(ctx, 0, amount)
}

// maxGenerate is the largest pool a single call may write. The
// max_generate threshold can lower it, never raise it past NumberSpace.
func maxGenerate() int {
	if n := config.GetThreshold("max_generate", NumberSpace); n > 0 && n < NumberSpace {
		return int(n)
	}
	return NumberSpace
}

// generate writes a pool of amount numbers for round. round 0 opens the
// round after the last one; the previous round is checked inside the same
// transaction so two openers cannot both take it.
func (s *generateService) generate(ctx context.Context, round, amount int) (_ int, numbers []string, err error) {
	ctx, traceID := logger.EnsureTraceID(ctx)
	if amount <= 0 {
		return 0, nil, invalid("amount must be positive")
	}
	if limit := maxGenerate(); amount > limit {
		logger.WarnCtx(ctx, "generate rejected: amount out of range",
			zap.Int("round", round), zap.Int("amount", amount), zap.Int("limit", limit))
		return 0, nil, ErrAmountOutOfRange
	}

	start := time.Now()
	strategy := Strategy(amount)
	defer func() { metrics.RecordGenerate(resultLabel(err), strategy, len(numbers), start) }()

	numbers = GenerateNumbers(s.d.Rand, amount)

	err = withTx(ctx, s.d.DB, s.d.Options.generateTimeout(amount), func(ctx context.Context, tx *sqlx.Tx) error {
		if round == 0 {
			last, err := model.LockMaxRound(ctx, tx)
			if err != nil {
				return err
			}
			if last > 0 {
				drawn, err := model.IsRoundDrawn(ctx, tx, last)
				if err != nil {
					return err
				}
				if !drawn {
					return ErrPreviousRoundNotDrawn
				}
			}
			round = last + 1
		}

		purchases, err := model.CountPurchasesByRound(ctx, tx, round)
		if err != nil {
			return err
		}
		if purchases > 0 {
			return ErrRoundHasPurchases
		}
		drawn, err := model.IsRoundDrawn(ctx, tx, round)
		if err != nil {
			return err
		}
		tickets, err := model.CountTickets(ctx, tx, round)
		if err != nil {
			return err
		}
		if state.Allow(state.Phase(tickets > 0, drawn), state.ActGenerate) != nil {
			return ErrRoundClosed
		}

		removed, err := model.DeleteTicketsByRound(ctx, tx, round)
		if err != nil {
			return err
		}
		if err := model.InsertTickets(ctx, tx, round, s.d.Options.TicketPrice, numbers, s.d.Options.BatchSize); err != nil {
			return err
		}

		audit, err := model.NewRoundAudit(round, model.AuditGenerate, s.d.Options.Operator, traceID, map[string]interface{}{
			"amount":   amount,
			"replaced": removed,
			"strategy": strategy,
			"price":    helper.TrimDecimal(s.d.Options.TicketPrice),
		})
		if err != nil {
			return err
		}
		return audit.Insert(ctx, tx)
	})
	if err != nil {
		logger.WarnCtx(ctx, "generate failed", zap.Int("round", round), zap.Int("amount", amount), zap.Error(err))
		return 0, nil, err
	}

	logger.InfoCtx(ctx, "round pool generated", zap.Int("round", round), zap.Int("amount", amount),
		zap.String("strategy", strategy), zap.Duration("elapsed", time.Since(start)))
	return round, numbers, nil
}

// Strategy names the generation method used for amount.
func Strategy(amount int) string {
	if amount <= NumberSpace/2 {
		return "sample"
	}
	return "shuffle"
}

// GenerateNumbers returns amount distinct zero-padded 6-digit numbers.
// Up to half the space it rejects duplicates; above that a partial
// Fisher-Yates over the whole space avoids the coupon-collector tail.
func GenerateNumbers(r helper.Rand, amount int) []string {
	if amount <= 0 {
		return []string{}
	}
	if amount > NumberSpace {
		amount = NumberSpace
	}
	out := make([]string, 0, amount)

	if Strategy(amount) == "sample" {
		seen := make(map[int]struct{}, amount)
		for len(out) < amount {
			n := r.Intn(NumberSpace)
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, helper.PadNumber(n, numberWidth))
		}
		return out
	}

	space := make([]int32, NumberSpace)
	for i := range space {
		space[i] = int32(i)
	}
	for i := 0; i < amount; i++ {
		j := i + r.Intn(NumberSpace-i)
		space[i], space[j] = space[j], space[i]
		out = append(out, helper.PadNumber(int(space[i]), numberWidth))
	}
	return out
}
