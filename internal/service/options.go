package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"lotto-server/common"
	"lotto-server/common/helper"
	infrds "lotto-server/internal/infra/redis"
	"lotto-server/internal/model"
)

// AccountStore is the customer/wallet capability the engine depends on.
// exec is the caller's transaction; nil means the store's own handle.
type AccountStore interface {
	GetByID(ctx context.Context, exec common.Conn, id int64) (*model.Customer, error)
	GetBalance(ctx context.Context, id int64) (decimal.Decimal, error)
	// AdjustBalance adds delta inside exec. ok is false when the account is
	// missing or the result would be negative; nothing is written then.
	AdjustBalance(ctx context.Context, exec common.Conn, id int64, delta decimal.Decimal) (after decimal.Decimal, ok bool, err error)
	Exists(ctx context.Context, id int64) (bool, error)
	VerifyCredential(ctx context.Context, email, password string) (*model.Customer, error)
	IsAdmin(ctx context.Context, id int64) (bool, error)
}

// Options are the engine's business settings.
type Options struct {
	TicketPrice   decimal.Decimal
	DefaultAmount int           // tickets per round when OpenNextRound gets 0
	BatchSize     int           // rows per INSERT when writing a pool
	TxTimeout     time.Duration // applied when the caller's ctx has no deadline
	BatchTimeout  time.Duration // added to TxTimeout per INSERT batch when generating
	DrawLockTTL   time.Duration
	Operator      string // recorded in draw_log and round_audit
}

func DefaultOptions() Options {
	return Options{
		TicketPrice:   decimal.NewFromInt(80),
		DefaultAmount: 100,
		BatchSize:     500,
		TxTimeout:     3 * time.Second,
		BatchTimeout:  100 * time.Millisecond,
		DrawLockTTL:   10 * time.Second,
		Operator:      "system",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !o.TicketPrice.IsPositive() {
		o.TicketPrice = d.TicketPrice
	}
	if o.DefaultAmount <= 0 {
		o.DefaultAmount = d.DefaultAmount
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = d.TxTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = d.BatchTimeout
	}
	if o.DrawLockTTL <= 0 {
		o.DrawLockTTL = d.DrawLockTTL
	}
	if o.Operator == "" {
		o.Operator = d.Operator
	}
	return o
}

// Deps is everything a service needs. Cache may be nil; Rand defaults to a
// crypto-seeded generator.
type Deps struct {
	DB       *sqlx.DB
	Accounts AccountStore
	Cache    *infrds.Cache
	Rand     helper.Rand
	Options  Options
}

// generateTimeout is the transaction budget for writing a pool of amount tickets.
func (o Options) generateTimeout(amount int) time.Duration {
	batches := (amount + o.BatchSize - 1) / o.BatchSize
	return o.TxTimeout + time.Duration(batches)*o.BatchTimeout
}

func (d Deps) normalize() Deps {
	if d.Rand == nil {
		d.Rand = helper.NewCryptoSeededRand()
	}
	d.Options = d.Options.withDefaults()
	return d
}

// withTx runs fn in one transaction. Engine errors returned by fn roll back
// and pass through unchanged; anything else becomes a storage error.
func withTx(ctx context.Context, db *sqlx.DB, timeout time.Duration, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, timeout)
		txCtx = c
		defer cancel()
	}
	tx, err := db.BeginTxx(txCtx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(txCtx, tx); err != nil {
		return classify("transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}
