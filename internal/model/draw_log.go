package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"lotto-server/common"
)

const TableDrawLog = "draw_log"

// DrawLog gates the draw: round is unique, so only one draw per round commits.
type DrawLog struct {
	ID        int64  `db:"id" json:"id"`
	Round     int    `db:"round" json:"round"`
	Source    string `db:"source" json:"source"` // issued | sold-only
	PoolSize  int    `db:"pool_size" json:"pool_size"`
	Operator  string `db:"operator" json:"operator"`
	TraceID   string `db:"trace_id" json:"trace_id"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

// CreateDrawLog inserts the gate row. A duplicate-key error means the round
// was drawn already (or concurrently); the caller checks with sqldb.IsDuplicateKey.
func CreateDrawLog(ctx context.Context, exec sqlx.ExtContext, log *DrawLog) error {
	log.CreatedAt = time.Now().UnixMilli()

	sqlStr := `INSERT INTO draw_log (round, source, pool_size, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := exec.ExecContext(ctx, sqlStr,
		log.Round, log.Source, log.PoolSize, log.Operator, log.TraceID, log.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "create draw log round=%d", log.Round)
	}

	id, _ := result.LastInsertId()
	log.ID = id
	return nil
}

// GetDrawLog loads the gate row of round. Missing rows return sql.ErrNoRows.
func GetDrawLog(ctx context.Context, c common.Conn, round int) (*DrawLog, error) {
	var log DrawLog
	if err := common.SelectOneCtx(ctx, c, &log, TableDrawLog, common.EnumFields(DrawLog{}), g.Ex{"round": round}); err != nil {
		return nil, err
	}
	return &log, nil
}

// IsRoundDrawn reports whether round has a committed draw.
func IsRoundDrawn(ctx context.Context, c common.Conn, round int) (bool, error) {
	n, err := common.CountCtx(ctx, c, TableDrawLog, g.Ex{"round": round})
	if err != nil {
		return false, errors.Wrapf(err, "count draw log round=%d", round)
	}
	return n > 0, nil
}
