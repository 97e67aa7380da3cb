package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) (*gorm.DB, *GormStore) {
	t.Helper()
	dsn := "file:usage_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Record{}))
	return db, NewGormStore(db)
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

var testLimits = config.QuotaConfig{
	GeminiDailyTokens:   1000,
	GeminiMonthlyTokens: 5000,
	SearchDaily:         100,
	SearchMonthly:       3000,
}

type failingStore struct{}

func (failingStore) Insert(context.Context, *Record) error { return errors.New("disk full") }
func (failingStore) Sum(context.Context, APIType, string, string) (Totals, error) {
	return Totals{}, errors.New("database is locked")
}

func TestGeminiCost_IsPure(t *testing.T) {
	first := GeminiCost(2000)
	second := GeminiCost(2000)
	assert.True(t, first.Equal(second))
	assert.True(t, decimal.RequireFromString("0.001").Equal(first), "got %s", first)
	assert.True(t, GeminiCost(0).IsZero())
}

func TestSearchCost_FreeTier(t *testing.T) {
	assert.True(t, SearchCost(0).IsZero())
	assert.True(t, SearchCost(100).IsZero())
	assert.True(t, decimal.RequireFromString("0.25").Equal(SearchCost(150)))
	assert.True(t, SearchCost(1100).Equal(SearchCost(1100)))
}

func TestCheckQuota_BlocksAtDailyLimit(t *testing.T) {
	_, store := setupStore(t)
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.Local)
	ledger := NewLedger(store, testLimits, nil).WithClock(fixedClock(now))
	ctx := context.Background()

	ledger.RecordGemini(ctx, "test", 400)
	d := ledger.CheckQuota(ctx, APIGemini)
	assert.True(t, d.Allowed)

	ledger.RecordGemini(ctx, "test", 600)
	d = ledger.CheckQuota(ctx, APIGemini)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "daily")

	// search budget is independent
	assert.True(t, ledger.CheckQuota(ctx, APIGoogleSearch).Allowed)
}

func TestCheckQuota_BlocksAtMonthlyLimit(t *testing.T) {
	db, store := setupStore(t)
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.Local)
	ledger := NewLedger(store, testLimits, nil).WithClock(fixedClock(now))

	for _, day := range []string{"2026-03-01", "2026-03-05", "2026-03-19"} {
		require.NoError(t, db.Create(&Record{APIType: APIGemini, Endpoint: "seed", TokensUsed: 900, Cost: GeminiCost(900), Date: day}).Error)
	}
	assert.True(t, ledger.CheckQuota(context.Background(), APIGemini).Allowed)

	require.NoError(t, db.Create(&Record{APIType: APIGemini, Endpoint: "seed", TokensUsed: 2300, Cost: GeminiCost(2300), Date: "2026-03-02"}).Error)
	d := ledger.CheckQuota(context.Background(), APIGemini)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "monthly")
}

func TestCheckQuota_FailsOpen(t *testing.T) {
	ledger := NewLedger(failingStore{}, testLimits, nil)
	d := ledger.CheckQuota(context.Background(), APIGemini)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestRecordUsage_SwallowsStoreErrors(t *testing.T) {
	ledger := NewLedger(failingStore{}, testLimits, nil)
	assert.NotPanics(t, func() {
		ledger.RecordGemini(context.Background(), "chat", 120)
		ledger.RecordSearch(context.Background(), "search", 1)
	})
}

func TestGetMonthlyUsage_CoversWholeMonth(t *testing.T) {
	db, store := setupStore(t)
	ledger := NewLedger(store, testLimits, nil)

	seed := map[string]int64{
		"2026-01-31": 1,
		"2026-02-01": 10,
		"2026-02-14": 20,
		"2026-02-28": 30,
		"2026-03-01": 1000,
	}
	for day, n := range seed {
		require.NoError(t, db.Create(&Record{APIType: APIGemini, Endpoint: "seed", TokensUsed: n, Cost: GeminiCost(n), Date: day}).Error)
	}
	require.NoError(t, db.Create(&Record{APIType: APIGoogleSearch, Endpoint: "seed", TokensUsed: 7, Cost: decimal.Zero, Date: "2026-02-10"}).Error)

	got, err := ledger.GetMonthlyUsage(context.Background(), APIGemini, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, int64(60), got)

	got, err = ledger.GetMonthlyUsage(context.Background(), APIGemini, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = ledger.GetDailyUsage(context.Background(), APIGoogleSearch, "2026-02-10")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	_, err = ledger.GetMonthlyUsage(context.Background(), APIGemini, "Feb 2026")
	require.Error(t, err)
}

func TestRecordSearch_StoresMarginalCost(t *testing.T) {
	db, store := setupStore(t)
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.Local)
	ledger := NewLedger(store, testLimits, nil).WithClock(fixedClock(now))
	ctx := context.Background()

	require.NoError(t, db.Create(&Record{APIType: APIGoogleSearch, Endpoint: "seed", TokensUsed: 99, Cost: decimal.Zero, Date: "2026-04-02"}).Error)
	ledger.RecordSearch(ctx, "customsearch", 3)

	var last Record
	require.NoError(t, db.Order("id DESC").First(&last).Error)
	assert.Equal(t, int64(3), last.TokensUsed)
	assert.Equal(t, "2026-04-02", last.Date)
	assert.True(t, decimal.RequireFromString("0.01").Equal(last.Cost), "got %s", last.Cost)

	sum, err := ledger.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(102), sum.Daily.Searches)
	assert.Equal(t, int64(2), sum.Daily.Records)
	assert.True(t, SearchCost(102).Equal(sum.Daily.Cost), "got %s", sum.Daily.Cost)
	assert.Equal(t, "2026-04", sum.Month)
	assert.Equal(t, testLimits.SearchDaily, sum.Limits.SearchDaily)
}
