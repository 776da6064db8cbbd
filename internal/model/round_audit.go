package model

import (
	"context"
	"time"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"lotto-server/common"
)

const TableRoundAudit = "round_audit"

// audit event types
const (
	AuditGenerate = "generate"
	AuditDraw     = "draw"
	AuditReset    = "reset"
)

// RoundAudit records administrative round events. Append-only, survives reset.
type RoundAudit struct {
	ID        int64  `db:"id"`
	Round     int    `db:"round"`
	EventType string `db:"event_type"`
	Payload   string `db:"payload"` // JSON snapshot
	Operator  string `db:"operator"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

func (e *RoundAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	e.CreatedAt = time.Now().UnixMilli()
	if e.Payload == "" {
		e.Payload = "{}"
	}

	sqlStr := "INSERT INTO round_audit (round, event_type, payload, operator, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.Round, e.EventType, e.Payload, e.Operator, e.TraceID, e.CreatedAt}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return errors.Wrapf(err, "insert round audit %s round=%d", e.EventType, e.Round)
}

// NewRoundAudit builds an audit row with payload marshalled to JSON.
func NewRoundAudit(round int, eventType, operator, traceID string, payload interface{}) (*RoundAudit, error) {
	s, err := common.JsonMarshalToStringSafe(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal audit payload")
	}
	return &RoundAudit{Round: round, EventType: eventType, Payload: s, Operator: operator, TraceID: traceID}, nil
}

func ListRoundAudit(ctx context.Context, c common.Conn, round int) ([]RoundAudit, error) {
	list := []RoundAudit{}
	err := common.SelectAllCtx(ctx, c, &list, common.QueryArg{
		Table:  TableRoundAudit,
		Fields: common.EnumFields(RoundAudit{}),
		Ex:     []exp.Expression{g.Ex{"round": round}},
		Order:  []exp.OrderedExpression{g.C("id").Asc()},
	})
	return list, errors.Wrapf(err, "list round audit round=%d", round)
}
