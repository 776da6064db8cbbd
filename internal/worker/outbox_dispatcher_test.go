package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotto-server/common/constant"
	"lotto-server/internal/model"
	"lotto-server/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	fail   bool
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

func TestDispatchOnceMarksSent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, model.CreateOutbox(ctx, db, model.TopicTicketSold, "purchase:1", map[string]int{"purchase_id": 1}))
	require.NoError(t, model.CreateOutbox(ctx, db, model.TopicLottoDrawn, "draw:1", map[string]int{"round": 1}))

	pub := &fakePublisher{}
	d := NewOutboxDispatcher(db, pub, time.Second, 10)

	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{model.TopicTicketSold, model.TopicLottoDrawn}, pub.published())

	sent, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDispatchOnceRecordsFailure(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, model.CreateOutbox(ctx, db, model.TopicPrizeRedeemed, "redeem:1", map[string]int{"purchase_id": 1}))

	d := NewOutboxDispatcher(db, &fakePublisher{fail: true}, 0, 0)
	sent, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	rows, err := model.ListOutboxPending(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	o, err := model.GetOutbox(ctx, db, rows[0].ID)
	require.NoError(t, err)
	assert.EqualValues(t, constant.OutboxPending, o.Status)
	assert.Equal(t, 1, o.RetryCount)
	assert.Contains(t, o.LastError, "broker unavailable")
}

func TestStartStopsOnCancel(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, model.CreateOutbox(context.Background(), db, model.TopicLottoDrawn, "draw:2", map[string]int{"round": 2}))

	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	NewOutboxDispatcher(db, pub, 10*time.Millisecond, 10).Start(ctx, &wg)

	assert.Eventually(t, func() bool { return len(pub.published()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
}
