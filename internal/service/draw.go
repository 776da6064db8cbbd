package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/common/logger"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/infra/sqldb"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
)

// Draw sources.
const (
	SourceIssued   = "issued"    // every ticket generated for the round
	SourceSoldOnly = "sold-only" // only sold tickets
)

// Prize tiers, in matching precedence.
const (
	TierFirst   = "tier1"
	TierSecond  = "tier2"
	TierThird   = "tier3"
	TierSuffix3 = "suffix3"
	TierSuffix2 = "suffix2"
)

// Placeholder is stored for tier2/tier3 when the pool is too small. It can
// never equal a 6-digit number, so the matcher skips it.
const Placeholder = "-"

// TierOrder is the fixed matching precedence.
var TierOrder = []string{TierFirst, TierSecond, TierThird, TierSuffix3, TierSuffix2}

// TierRewards are the fixed reward amounts.
var TierRewards = map[string]decimal.Decimal{
	TierFirst:   decimal.NewFromInt(6000000),
	TierSecond:  decimal.NewFromInt(200000),
	TierThird:   decimal.NewFromInt(80000),
	TierSuffix3: decimal.NewFromInt(4000),
	TierSuffix2: decimal.NewFromInt(2000),
}

// DrawService draws a round exactly once and serves the committed batch.
type DrawService interface {
	// Draw picks the five prizes of round. On a drawn round it returns the
	// existing batch together with ErrAlreadyDrawn. While another Draw of
	// the same round holds the Redis lock it returns ErrDrawInProgress and
	// no batch, unless that draw has already committed.
	Draw(ctx context.Context, round int, source string) ([]model.Prize, error)
	ListPrizes(ctx context.Context, round int) ([]model.Prize, error)
	// DrawInfo returns who drew round, from which source and pool size.
	DrawInfo(ctx context.Context, round int) (*model.DrawLog, error)
}

type drawService struct {
	d Deps
}

func NewDrawService(d Deps) DrawService { return &drawService{d: d.normalize()} }

func (s *drawService) Draw(ctx context.Context, round int, source string) (prizes []model.Prize, err error) {
	ctx, traceID := logger.EnsureTraceID(ctx)
	if round <= 0 {
		return nil, invalid("round must be positive")
	}
	status, ok := sourceStatus(source)
	if !ok {
		return nil, ErrInvalidSource
	}

	start := time.Now()
	defer func() { metrics.RecordDraw(resultLabel(err), source, start) }()

	// Redis lock only absorbs double submissions; draw_log is the real gate.
	lockKey := infrds.DrawLockKey(round)
	token, locked, lerr := s.d.Cache.TryLock(ctx, lockKey, s.d.Options.DrawLockTTL)
	if lerr != nil {
		logger.WarnCtx(ctx, "draw lock unavailable, relying on draw_log", zap.Int("round", round), zap.Error(lerr))
	} else if !locked {
		return s.lockedOut(ctx, round)
	} else {
		defer func() {
			if uerr := s.d.Cache.Unlock(context.Background(), lockKey, token); uerr != nil {
				logger.WarnCtx(ctx, "draw lock release failed", zap.Int("round", round), zap.Error(uerr))
			}
		}()
	}

	var existing []model.Prize
	raced := false
	err = withTx(ctx, s.d.DB, s.d.Options.TxTimeout, func(ctx context.Context, tx *sqlx.Tx) error {
		batch, err := model.ListPrizes(ctx, tx, round)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			existing = batch
			return ErrAlreadyDrawn
		}

		pool, err := model.ListTicketNumbers(ctx, tx, round, status)
		if err != nil {
			return err
		}
		if len(pool) == 0 {
			return ErrNoPool
		}

		gate := &model.DrawLog{Round: round, Source: source, PoolSize: len(pool), Operator: s.d.Options.Operator, TraceID: traceID}
		if err := model.CreateDrawLog(ctx, tx, gate); err != nil {
			if sqldb.IsDuplicateKey(err) {
				raced = true
				return ErrAlreadyDrawn
			}
			return err
		}

		if err := model.InsertPrizes(ctx, tx, BuildPrizes(s.d.Rand, round, pool)); err != nil {
			if sqldb.IsDuplicateKey(err) {
				raced = true
				return ErrAlreadyDrawn
			}
			return err
		}
		// read back so callers get the stored rows, ids included
		if prizes, err = model.ListPrizes(ctx, tx, round); err != nil {
			return err
		}

		audit, err := model.NewRoundAudit(round, model.AuditDraw, s.d.Options.Operator, traceID, map[string]interface{}{
			"source":    source,
			"pool_size": len(pool),
			"prizes":    prizeNumbers(prizes),
		})
		if err != nil {
			return err
		}
		if err := audit.Insert(ctx, tx); err != nil {
			return err
		}
		metrics.ObserveDrawPool(len(pool))

		return model.CreateOutbox(ctx, tx, model.TopicLottoDrawn, drawBizKey(round), map[string]interface{}{
			"event":     "lotto_drawn",
			"round":     round,
			"source":    source,
			"pool_size": len(pool),
			"prizes":    prizes,
			"trace_id":  traceID,
		})
	})

	if errors.Is(err, ErrAlreadyDrawn) {
		if raced {
			// a concurrent draw committed first; its batch is the only one
			batch, rerr := model.ListPrizes(ctx, s.d.DB, round)
			if rerr != nil {
				logger.WarnCtx(ctx, "draw: reload of winning batch failed", zap.Int("round", round), zap.Error(rerr))
				return nil, storageErr("reload prizes", rerr)
			}
			existing = batch
		}
		s.cachePrizes(ctx, round, existing)
		logger.InfoCtx(ctx, "draw rejected: round already drawn", zap.Int("round", round), zap.Bool("raced", raced))
		return existing, ErrAlreadyDrawn
	}
	if err != nil {
		logger.WarnCtx(ctx, "draw failed", zap.Int("round", round), zap.String("source", source), zap.Error(err))
		return nil, err
	}

	s.cachePrizes(ctx, round, prizes)
	logger.InfoCtx(ctx, "round drawn", zap.Int("round", round), zap.String("source", source),
		zap.Strings("prizes", prizeNumbers(prizes)))
	return prizes, nil
}

func (s *drawService) ListPrizes(ctx context.Context, round int) ([]model.Prize, error) {
	if round <= 0 {
		return nil, invalid("round must be positive")
	}
	key := infrds.RoundPrizesKey(round)
	var cached []model.Prize
	if hit, err := s.d.Cache.Get(ctx, key, &cached); err != nil {
		logger.WarnCtx(ctx, "prize cache read failed", zap.Int("round", round), zap.Error(err))
	} else if hit && len(cached) > 0 {
		return cached, nil
	}

	prizes, err := model.ListPrizes(ctx, s.d.DB, round)
	if err != nil {
		return nil, storageErr("list prizes", err)
	}
	s.cachePrizes(ctx, round, prizes)
	return prizes, nil
}

// lockedOut answers a Draw that lost the Redis lock. The holder may have
// committed already, in which case its batch is reported as already drawn.
func (s *drawService) lockedOut(ctx context.Context, round int) ([]model.Prize, error) {
	existing, err := model.ListPrizes(ctx, s.d.DB, round)
	if err != nil {
		return nil, storageErr("list prizes", err)
	}
	if len(existing) > 0 {
		logger.InfoCtx(ctx, "draw rejected: round already drawn", zap.Int("round", round))
		return existing, ErrAlreadyDrawn
	}
	logger.InfoCtx(ctx, "draw rejected: in progress", zap.Int("round", round))
	return nil, ErrDrawInProgress
}

func (s *drawService) DrawInfo(ctx context.Context, round int) (*model.DrawLog, error) {
	if round <= 0 {
		return nil, invalid("round must be positive")
	}
	gate, err := model.GetDrawLog(ctx, s.d.DB, round)
	if err != nil {
		if helper.IsNoRows(err) {
			return nil, ErrNotDrawn
		}
		return nil, storageErr("get draw log", err)
	}
	return gate, nil
}

// cachePrizes stores a committed, non-empty batch. Batches never change, so
// there is no invalidation besides reset.
func (s *drawService) cachePrizes(ctx context.Context, round int, prizes []model.Prize) {
	if len(prizes) == 0 {
		return
	}
	if err := s.d.Cache.Set(ctx, infrds.RoundPrizesKey(round), prizes); err != nil {
		logger.WarnCtx(ctx, "prize cache write failed", zap.Int("round", round), zap.Error(err))
	}
}

func sourceStatus(source string) (string, bool) {
	switch source {
	case SourceIssued:
		return "", true
	case SourceSoldOnly:
		return constant.TicketSold, true
	}
	return "", false
}

// Shuffle permutes s in place with Fisher-Yates.
func Shuffle(r helper.Rand, s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// BuildPrizes draws the five prizes of round from pool (which must be
// non-empty). pool itself is left untouched.
func BuildPrizes(r helper.Rand, round int, pool []string) []model.Prize {
	perm := append([]string(nil), pool...)
	Shuffle(r, perm)

	pick := func(i int) string {
		if i < len(perm) {
			return perm[i]
		}
		return Placeholder
	}
	values := map[string]string{
		TierFirst:   perm[0],
		TierSecond:  pick(1),
		TierThird:   pick(2),
		TierSuffix3: helper.Suffix(perm[0], 3),
		TierSuffix2: helper.PadNumber(helper.GenerateRandNum(r, 0, 100), 2),
	}

	prizes := make([]model.Prize, 0, len(TierOrder))
	for _, tier := range TierOrder {
		prizes = append(prizes, model.Prize{
			Round:        round,
			Tier:         tier,
			Number:       values[tier],
			RewardAmount: TierRewards[tier],
		})
	}
	return prizes
}

func prizeNumbers(prizes []model.Prize) []string {
	out := make([]string, 0, len(prizes))
	for _, p := range prizes {
		out = append(out, p.Tier+"="+p.Number)
	}
	return out
}

func drawBizKey(round int) string {
	return "draw:" + strconv.Itoa(round)
}
