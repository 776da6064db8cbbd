package model_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/internal/infra/sqldb"
	"lotto-server/internal/model"
	"lotto-server/internal/testutil"
)

func TestTicketsLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	numbers := []string{"000001", "000007", "004321"}
	require.NoError(t, model.InsertTickets(ctx, db, 1, decimal.NewFromInt(80), numbers, 2))

	n, err := model.CountTickets(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	max, err := model.MaxRound(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, max)

	list, err := model.ListTickets(ctx, db, 1, constant.TicketAvailable)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "000001", list[0].Number)
	assert.True(t, list[0].Price.Equal(decimal.NewFromInt(80)))

	sold, err := model.MarkTicketSold(ctx, db, list[1].ID)
	require.NoError(t, err)
	assert.True(t, sold)
	// second transition is refused
	sold, err = model.MarkTicketSold(ctx, db, list[1].ID)
	require.NoError(t, err)
	assert.False(t, sold)

	soldNumbers, err := model.ListTicketNumbers(ctx, db, 1, constant.TicketSold)
	require.NoError(t, err)
	assert.Equal(t, []string{"000007"}, soldNumbers)

	_, err = model.GetTicketInRound(ctx, db, list[0].ID, 2)
	assert.True(t, helper.IsNoRows(err))

	removed, err := model.DeleteTicketsByRound(ctx, db, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
}

func TestTicketNumberUniqueWithinRound(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, model.InsertTickets(ctx, db, 1, decimal.NewFromInt(80), []string{"123456"}, 0))
	// same number in another round is fine
	require.NoError(t, model.InsertTickets(ctx, db, 2, decimal.NewFromInt(80), []string{"123456"}, 0))

	err := model.InsertTickets(ctx, db, 1, decimal.NewFromInt(80), []string{"123456"}, 0)
	require.Error(t, err)
	assert.True(t, sqldb.IsDuplicateKey(err))
}

func TestAdjustBalanceNeverNegative(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	id := testutil.SeedCustomer(t, db, "a@example.com", "100", constant.RoleUser)

	after, ok, err := model.AdjustBalance(ctx, db, id, decimal.NewFromInt(-80))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, after.Equal(decimal.NewFromInt(20)), after.String())

	_, ok, err = model.AdjustBalance(ctx, db, id, decimal.NewFromInt(-21))
	require.NoError(t, err)
	assert.False(t, ok)

	after, ok, err = model.AdjustBalance(ctx, db, id, decimal.NewFromInt(6000000))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, after.Equal(decimal.NewFromInt(6000020)), after.String())

	_, ok, err = model.AdjustBalance(ctx, db, 999, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjustBalanceKeepsCents(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	id := testutil.SeedCustomer(t, db, "cents@example.com", "1.00", constant.RoleUser)
	dime := decimal.RequireFromString("-0.10")

	for i := 9; i >= 0; i-- {
		after, ok, err := model.AdjustBalance(ctx, db, id, dime)
		require.NoError(t, err)
		require.True(t, ok, "debit %d", 10-i)
		assert.Equal(t, decimal.New(int64(i*10), -2).StringFixed(2), after.StringFixed(2))
		assert.True(t, after.Equal(after.Round(2)), after.String())
	}

	_, ok, err := model.AdjustBalance(ctx, db, id, dime)
	require.NoError(t, err)
	assert.False(t, ok)

	cu, err := model.GetCustomerByID(ctx, db, id)
	require.NoError(t, err)
	assert.True(t, cu.Balance.IsZero(), cu.Balance.String())
}

func TestPurchaseUniquePerTicket(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	ids := testutil.SeedTickets(t, db, 1, "80", "000007")
	cus := testutil.SeedCustomer(t, db, "b@example.com", "100", constant.RoleUser)

	p := &model.Purchase{CustomerID: cus, TicketID: ids[0], Round: 1}
	require.NoError(t, p.Insert(ctx, db))
	assert.NotZero(t, p.ID)
	assert.NotZero(t, p.CreatedAt)

	err := (&model.Purchase{CustomerID: cus, TicketID: ids[0], Round: 1}).Insert(ctx, db)
	require.Error(t, err)
	assert.True(t, sqldb.IsDuplicateKey(err))

	flipped, err := model.MarkPurchaseRedeemed(ctx, db, p.ID)
	require.NoError(t, err)
	assert.True(t, flipped)
	flipped, err = model.MarkPurchaseRedeemed(ctx, db, p.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	got, err := model.GetPurchase(ctx, db, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Redeemed)

	details, err := model.ListPurchasesForCustomer(ctx, db, cus)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "000007", details[0].Number)
}

func TestPrizeBatchOncePerRound(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	batch := []model.Prize{
		{Round: 1, Tier: "tier1", Number: "000007", RewardAmount: decimal.NewFromInt(6000000)},
		{Round: 1, Tier: "suffix2", Number: "42", RewardAmount: decimal.NewFromInt(2000)},
	}
	require.NoError(t, model.InsertPrizes(ctx, db, batch))
	err := model.InsertPrizes(ctx, db, batch)
	require.Error(t, err)
	assert.True(t, sqldb.IsDuplicateKey(err))

	list, err := model.ListPrizes(ctx, db, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "tier1", list[0].Tier)

	require.NoError(t, model.CreateDrawLog(ctx, db, &model.DrawLog{Round: 1, Source: "issued", PoolSize: 2}))
	err = model.CreateDrawLog(ctx, db, &model.DrawLog{Round: 1, Source: "issued", PoolSize: 2})
	assert.True(t, sqldb.IsDuplicateKey(err))

	drawn, err := model.IsRoundDrawn(ctx, db, 1)
	require.NoError(t, err)
	assert.True(t, drawn)
}

func TestOutboxRetryParking(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	require.NoError(t, model.CreateOutbox(ctx, db, model.TopicLottoDrawn, "draw:1", map[string]int{"round": 1}))
	rows, err := model.ListOutboxPending(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID
	assert.JSONEq(t, `{"round":1}`, rows[0].Payload)

	for i := 0; i < model.MaxOutboxRetry; i++ {
		require.NoError(t, model.MarkOutboxFailed(ctx, db, id, "broker down"))
	}
	o, err := model.GetOutbox(ctx, db, id)
	require.NoError(t, err)
	assert.EqualValues(t, constant.OutboxFailed, o.Status)
	assert.Equal(t, model.MaxOutboxRetry, o.RetryCount)

	rows, err = model.ListOutboxPending(ctx, db, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestResetKeepsAdmins(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	admin := testutil.SeedCustomer(t, db, "admin@example.com", "1000", constant.RoleAdmin)
	user := testutil.SeedCustomer(t, db, "u@example.com", "100", constant.RoleUser)
	ids := testutil.SeedTickets(t, db, 1, "80", "000001")
	require.NoError(t, (&model.Purchase{CustomerID: user, TicketID: ids[0], Round: 1}).Insert(ctx, db))
	require.NoError(t, (&model.WalletLedger{CustomerID: user, BizType: constant.BalanceChangePurchase, Amount: decimal.NewFromInt(80), BeforeAmount: decimal.NewFromInt(100), AfterAmount: decimal.NewFromInt(20)}).Insert(ctx, db))
	require.NoError(t, (&model.WalletLedger{CustomerID: admin, BizType: constant.BalanceChangeAdjust, Amount: decimal.NewFromInt(1)}).Insert(ctx, db))

	rc, err := model.ResetRoundState(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rc.Tickets)
	assert.EqualValues(t, 1, rc.Purchases)
	assert.EqualValues(t, 1, rc.Customers)
	assert.EqualValues(t, 1, rc.Ledger)

	_, err = model.GetCustomerByID(ctx, db, admin)
	assert.NoError(t, err)
	_, err = model.GetCustomerByID(ctx, db, user)
	assert.True(t, helper.IsNoRows(err))

	ledger, err := model.ListLedger(ctx, db, admin)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, "adjust", ledger[0].BizTypeStr)
}

func TestWalletLedgerValidation(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	d := decimal.RequireFromString

	ok := []model.WalletLedger{
		{CustomerID: 1, BizType: constant.BalanceChangePurchase, Amount: d("80"), BeforeAmount: d("100"), AfterAmount: d("20")},
		{CustomerID: 1, BizType: constant.BalanceChangePrize, Amount: d("4000"), BeforeAmount: d("20"), AfterAmount: d("4020")},
		{CustomerID: 1, BizType: constant.BalanceChangeAdjust, Amount: d("5"), BeforeAmount: d("4020"), AfterAmount: d("4015")},
	}
	for i := range ok {
		require.NoError(t, ok[i].Insert(ctx, db), "row %d", i)
	}

	bad := []model.WalletLedger{
		{CustomerID: 1, BizType: 99, Amount: d("1"), BeforeAmount: d("1"), AfterAmount: d("0")},
		{CustomerID: 1, BizType: constant.BalanceChangePurchase, Amount: d("80"), BeforeAmount: d("100"), AfterAmount: d("180")},
		{CustomerID: 1, BizType: constant.BalanceChangePrize, Amount: d("10"), BeforeAmount: d("20"), AfterAmount: d("10")},
	}
	for i := range bad {
		assert.Error(t, bad[i].Insert(ctx, db), "row %d", i)
	}

	rows, err := model.ListLedger(ctx, db, 1)
	require.NoError(t, err)
	assert.Len(t, rows, len(ok))
	assert.Equal(t, "adjust", rows[2].BizTypeStr)
}
