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

const TableOutbox = "outbox"

// outbox topics
const (
	TopicTicketSold    = "lotto_ticket_sold"
	TopicLottoDrawn    = "lotto_drawn"
	TopicPrizeRedeemed = "lotto_prize_redeemed"
)

// MaxOutboxRetry is the number of failed publishes after which a row is parked as failed.
const MaxOutboxRetry = 10

// Outbox is a message written in the business transaction and published later.
type Outbox struct {
	ID         int64  `db:"id"`
	Topic      string `db:"topic"`
	BizKey     string `db:"biz_key"`
	Payload    string `db:"payload"` // JSON
	Status     int8   `db:"status"`  // 1 pending, 2 sent, 3 failed
	RetryCount int    `db:"retry_count"`
	LastError  string `db:"last_error"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// Insert stores the row as pending.
func (o *Outbox) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	o.Status, o.CreatedAt, o.UpdatedAt = constant.OutboxPending, now, now

	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{o.Topic, o.BizKey, o.Payload, o.Status, 0, "", now, now}

	res, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return errors.Wrapf(err, "insert outbox %s/%s", o.Topic, o.BizKey)
	}
	o.ID, _ = res.LastInsertId()
	return nil
}

// OutboxRow is the projection the dispatcher scans.
type OutboxRow struct {
	ID      int64  `db:"id"`
	Topic   string `db:"topic"`
	BizKey  string `db:"biz_key"`
	Payload string `db:"payload"`
}

// ListOutboxPending returns pending rows that still have retries left, oldest first.
func ListOutboxPending(ctx context.Context, exec sqlx.ExtContext, limit int) ([]OutboxRow, error) {
	sqlStr := "SELECT id, topic, biz_key, payload FROM outbox WHERE status = ? AND retry_count < ? ORDER BY id ASC LIMIT ?"
	args := []interface{}{constant.OutboxPending, MaxOutboxRetry, limit}

	var list []OutboxRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, args...); err != nil {
		return nil, errors.Wrap(err, "list pending outbox")
	}
	return list, nil
}

func MarkOutboxSent(ctx context.Context, c common.Conn, id int64) error {
	_, err := common.UpdateCtx(ctx, c, TableOutbox,
		g.Record{"status": constant.OutboxSent, "updated_at": time.Now().UnixMilli()},
		g.Ex{"id": id, "status": constant.OutboxPending})
	return errors.Wrapf(err, "mark outbox %d sent", id)
}

// MarkOutboxFailed records the error and bumps retry_count; the row is parked
// as failed (status 3) once it reaches MaxOutboxRetry.
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	if len(lastError) > 500 {
		lastError = lastError[:500]
	}
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN ? ELSE ? END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	args := []interface{}{MaxOutboxRetry - 1, constant.OutboxFailed, constant.OutboxPending, lastError, time.Now().UnixMilli(), id}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return errors.Wrapf(err, "mark outbox %d failed", id)
}

// GetOutbox loads a full row; used by tests and ops tooling.
func GetOutbox(ctx context.Context, exec sqlx.ExtContext, id int64) (*Outbox, error) {
	var o Outbox
	err := sqlx.GetContext(ctx, exec, &o,
		"SELECT id, topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at FROM outbox WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOutbox marshals payload and inserts a pending row.
func CreateOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload interface{}) error {
	s, err := common.JsonMarshalToString(payload)
	if err != nil {
		return errors.Wrap(err, "marshal outbox payload")
	}
	o := &Outbox{Topic: topic, BizKey: bizKey, Payload: s}
	return o.Insert(ctx, exec)
}
