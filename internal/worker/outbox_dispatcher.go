package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"lotto-server/common"
	"lotto-server/common/logger"
	infmq "lotto-server/internal/infra/rocketmq"
	"lotto-server/internal/metrics"
	"lotto-server/internal/model"
)

// OutboxDispatcher publishes pending outbox rows written by the engine's
// transactions. Delivery is at least once; consumers dedupe on biz_key.
type OutboxDispatcher struct {
	db        *sqlx.DB
	pub       infmq.Publisher
	interval  time.Duration
	batchSize int
}

func NewOutboxDispatcher(db *sqlx.DB, pub infmq.Publisher, interval time.Duration, batchSize int) *OutboxDispatcher {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxDispatcher{db: db, pub: pub, interval: interval, batchSize: batchSize}
}

// Start runs the dispatch loop until ctx is done.
func (d *OutboxDispatcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		logger.Info("outbox dispatcher started", zap.Duration("interval", d.interval))
		for {
			select {
			case <-ctx.Done():
				logger.Info("outbox dispatcher stopped")
				return
			case <-ticker.C:
				if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("outbox: dispatch failed", zap.Error(err))
				}
			}
		}
	}()
}

// DispatchOnce publishes one batch and returns how many rows were sent.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	rows, err := model.ListOutboxPending(c, d.db, d.batchSize)
	cancel()
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range rows {
		if err := d.pub.Publish(ctx, r.Topic, []byte(r.Payload)); err != nil {
			metrics.RecordOutbox(r.Topic, "fail")
			if merr := model.MarkOutboxFailed(ctx, d.db, r.ID, errorText(err)); merr != nil {
				logger.Warn("outbox: mark failed failed", zap.Int64("id", r.ID), zap.Error(merr))
			}
			continue
		}
		metrics.RecordOutbox(r.Topic, metrics.ResultSuccess)
		if err := model.MarkOutboxSent(ctx, d.db, r.ID); err != nil {
			logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if len(rows) > 0 {
		logger.Debug("outbox: batch dispatched", zap.Int("rows", len(rows)), zap.Int("sent", sent))
	}
	return sent, nil
}

func errorText(err error) string {
	s, _ := common.JsonMarshalToString(map[string]string{"error": err.Error()})
	if len(s) > 240 {
		return s[:240]
	}
	return s
}
