package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/internal/config"
	"lotto-server/internal/model"
	"lotto-server/internal/testutil"
)

func assertDistinctPadded(t *testing.T, numbers []string, amount int) {
	t.Helper()
	require.Len(t, numbers, amount)
	seen := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		require.Len(t, n, 6)
		require.True(t, helper.CtypeDigit(n), n)
		_, dup := seen[n]
		require.False(t, dup, "duplicate %s", n)
		seen[n] = struct{}{}
	}
}

func TestGenerateReplacesPool(t *testing.T) {
	f := newFixture(t, 21)
	ctx := context.Background()

	first, err := f.engine.Generate(ctx, 1, 50)
	require.NoError(t, err)
	assertDistinctPadded(t, first, 50)

	second, err := f.engine.Generate(ctx, 1, 7)
	require.NoError(t, err)
	assertDistinctPadded(t, second, 7)

	avail, err := f.engine.ListAvailable(ctx, 1)
	require.NoError(t, err)
	got := make([]string, 0, len(avail))
	for _, tk := range avail {
		got = append(got, tk.Number)
		assert.True(t, tk.Price.Equal(dec(80)))
		assert.Equal(t, constant.TicketAvailable, tk.Status)
	}
	assert.ElementsMatch(t, second, got)

	audit, err := model.ListRoundAudit(ctx, f.db, 1)
	require.NoError(t, err)
	assert.Len(t, audit, 2)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.engine.Generate(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.engine.Generate(ctx, 0, 10)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.engine.Generate(ctx, 1, NumberSpace+1)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	n, err := model.CountTickets(ctx, f.db, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGenerateRefusedOnceRoundHasPurchases(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.engine.Generate(ctx, 1, 5)
	require.NoError(t, err)
	avail, err := f.engine.ListAvailable(ctx, 1)
	require.NoError(t, err)
	cus := testutil.SeedCustomer(t, f.db, "g@example.com", "100", constant.RoleUser)
	_, err = f.engine.Purchase(ctx, cus, avail[0].ID, 1)
	require.NoError(t, err)

	_, err = f.engine.Generate(ctx, 1, 5)
	assert.ErrorIs(t, err, ErrRoundHasPurchases)

	sold, err := f.engine.ListSold(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{avail[0].Number}, sold)
}

func TestGenerateNumbersStrategies(t *testing.T) {
	r := helper.NewRand(77)
	assertDistinctPadded(t, GenerateNumbers(r, 1000), 1000)
	assert.Equal(t, "sample", Strategy(NumberSpace/2))
	assert.Equal(t, "shuffle", Strategy(NumberSpace/2+1))

	if testing.Short() {
		t.Skip("large pool")
	}
	big := GenerateNumbers(r, NumberSpace/2+1)
	assertDistinctPadded(t, big, NumberSpace/2+1)

	all := GenerateNumbers(r, NumberSpace)
	assert.Len(t, all, NumberSpace)
}

func TestOpenNextRound(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	cur, err := f.engine.CurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cur)

	round, numbers, err := f.engine.OpenNextRound(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, round)
	assert.Len(t, numbers, 100)

	_, _, err = f.engine.OpenNextRound(ctx, 10)
	assert.ErrorIs(t, err, ErrPreviousRoundNotDrawn)

	_, err = f.engine.Draw(ctx, 1, SourceIssued)
	require.NoError(t, err)

	round, numbers, err = f.engine.OpenNextRound(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, round)
	assert.Len(t, numbers, 10)

	last, err := f.engine.LastRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, last)

	phase, err := f.engine.Phase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "drawn", phase)
	phase, err = f.engine.Phase(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "open", phase)
	phase, err = f.engine.Phase(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "empty", phase)
}

func TestGenerateRefusedOnDrawnRound(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	_, err := f.engine.Generate(ctx, 1, 3)
	require.NoError(t, err)
	_, err = f.engine.Draw(ctx, 1, SourceIssued)
	require.NoError(t, err)

	_, err = f.engine.Generate(ctx, 1, 3)
	assert.ErrorIs(t, err, ErrRoundClosed)
}

func TestGenerateLargePools(t *testing.T) {
	if testing.Short() {
		t.Skip("large pool")
	}
	f := newFixture(t, 5)
	ctx := context.Background()

	for _, amount := range []int{NumberSpace/2 + 1, NumberSpace} {
		numbers, err := f.engine.Generate(ctx, 1, amount)
		require.NoError(t, err, "amount %d", amount)
		assertDistinctPadded(t, numbers, amount)

		n, err := model.CountTickets(ctx, f.db, 1)
		require.NoError(t, err)
		assert.Equal(t, amount, n)
	}
}

func TestGenerateTimeoutScalesWithPool(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, o.TxTimeout+o.BatchTimeout, o.generateTimeout(1))
	assert.Equal(t, o.TxTimeout+o.BatchTimeout, o.generateTimeout(o.BatchSize))
	assert.Equal(t, o.TxTimeout+2*o.BatchTimeout, o.generateTimeout(o.BatchSize+1))
	assert.Equal(t, 3*time.Second+2000*100*time.Millisecond, o.generateTimeout(NumberSpace))
}

func TestGenerateHonoursMaxGenerateThreshold(t *testing.T) {
	prev := config.GetCurrent()
	t.Cleanup(func() { config.SetCurrent(prev) })
	config.SetCurrent(&config.Config{Thresholds: map[string]int64{"max_generate": 10}})

	f := newFixture(t, 8)
	ctx := context.Background()

	_, err := f.engine.Generate(ctx, 1, 11)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	numbers, err := f.engine.Generate(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, numbers, 10)

	// a threshold above the number space does not widen it
	config.SetCurrent(&config.Config{Thresholds: map[string]int64{"max_generate": 2 * NumberSpace}})
	_, err = f.engine.Generate(ctx, 2, NumberSpace+1)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestConcurrentOpenNextRound(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()

	const openers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		opened  []int
		refused int
	)
	for i := 0; i < openers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			round, numbers, err := f.engine.OpenNextRound(ctx, 20)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				assert.Len(t, numbers, 20)
				opened = append(opened, round)
			case errors.Is(err, ErrPreviousRoundNotDrawn):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{1}, opened)
	assert.Equal(t, openers-1, refused)

	n, err := model.CountTickets(ctx, f.db, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	audit, err := model.ListRoundAudit(ctx, f.db, 1)
	require.NoError(t, err)
	assert.Len(t, audit, 1)
}
