package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/common"
	"github.com/suPer8Hu/dispensary/internal/config"
	"github.com/suPer8Hu/dispensary/internal/metrics"
)

// Decision is the result of a quota check. Reason is set when Allowed is false.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Ledger records vendor usage and enforces the configured budgets.
type Ledger struct {
	store  Store
	limits config.QuotaConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewLedger(store Store, limits config.QuotaConfig, logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{store: store, limits: limits, logger: logger, now: time.Now}
}

// WithClock replaces the ledger's clock. Used by tests and the CLI.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) today() string { return l.now().Format(DateLayout) }

// RecordUsage appends one record dated today. Failures are logged and dropped.
func (l *Ledger) RecordUsage(ctx context.Context, apiType APIType, endpoint string, amount int64, cost decimal.Decimal) {
	rec := &Record{
		APIType:    apiType,
		Endpoint:   endpoint,
		TokensUsed: amount,
		Cost:       cost,
		Date:       l.today(),
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		metrics.Get().UsageFailures.Inc()
		l.logger.WithError(err).WithFields(logrus.Fields{
			"api_type": apiType,
			"endpoint": endpoint,
			"amount":   amount,
		}).Error("failed to record api usage")
	}
}

func (l *Ledger) RecordGemini(ctx context.Context, endpoint string, tokens int64) {
	l.RecordUsage(ctx, APIGemini, endpoint, tokens, GeminiCost(tokens))
}

// RecordSearch stores the marginal cost of calls against today's running
// total, so the day's summed cost matches SearchCost of the day's calls.
func (l *Ledger) RecordSearch(ctx context.Context, endpoint string, calls int64) {
	before, err := l.GetDailyUsage(ctx, APIGoogleSearch, l.today())
	if err != nil {
		l.logger.WithError(err).Warn("could not read search usage, recording zero cost")
		l.RecordUsage(ctx, APIGoogleSearch, endpoint, calls, decimal.Zero)
		return
	}
	cost := SearchCost(before + calls).Sub(SearchCost(before))
	l.RecordUsage(ctx, APIGoogleSearch, endpoint, calls, cost)
}

func (l *Ledger) GetDailyUsage(ctx context.Context, apiType APIType, date string) (int64, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return 0, common.Invalid("date must be YYYY-MM-DD")
	}
	t, err := l.store.Sum(ctx, apiType, date, day.AddDate(0, 0, 1).Format(DateLayout))
	if err != nil {
		return 0, err
	}
	return t.Tokens, nil
}

// GetMonthlyUsage sums a calendar month given as YYYY-MM.
func (l *Ledger) GetMonthlyUsage(ctx context.Context, apiType APIType, yearMonth string) (int64, error) {
	from, to, err := monthBounds(yearMonth)
	if err != nil {
		return 0, err
	}
	t, err := l.store.Sum(ctx, apiType, from, to)
	if err != nil {
		return 0, err
	}
	return t.Tokens, nil
}

func monthBounds(yearMonth string) (string, string, error) {
	first, err := time.ParseInLocation("2006-01", yearMonth, time.Local)
	if err != nil {
		return "", "", common.Invalid("month must be YYYY-MM")
	}
	return first.Format(DateLayout), first.AddDate(0, 1, 0).Format(DateLayout), nil
}

func (l *Ledger) limitsFor(apiType APIType) (daily, monthly int64, unit string) {
	switch apiType {
	case APIGemini:
		return l.limits.GeminiDailyTokens, l.limits.GeminiMonthlyTokens, "tokens"
	case APIGoogleSearch:
		return l.limits.SearchDaily, l.limits.SearchMonthly, "searches"
	}
	return 0, 0, ""
}

// CheckQuota compares today's and this month's usage against the limits.
// Any error while reading usage allows the call.
func (l *Ledger) CheckQuota(ctx context.Context, apiType APIType) Decision {
	daily, monthly, unit := l.limitsFor(apiType)
	now := l.now()

	used, err := l.GetDailyUsage(ctx, apiType, now.Format(DateLayout))
	if err != nil {
		l.logger.WithError(err).WithField("api_type", apiType).Warn("quota check failed, allowing call")
		return Decision{Allowed: true}
	}
	if daily > 0 && used >= daily {
		metrics.Get().QuotaDenials.WithLabelValues(string(apiType)).Inc()
		return Decision{Reason: fmt.Sprintf("daily %s limit reached (%d/%d %s)", apiType, used, daily, unit)}
	}

	used, err = l.GetMonthlyUsage(ctx, apiType, now.Format("2006-01"))
	if err != nil {
		l.logger.WithError(err).WithField("api_type", apiType).Warn("quota check failed, allowing call")
		return Decision{Allowed: true}
	}
	if monthly > 0 && used >= monthly {
		metrics.Get().QuotaDenials.WithLabelValues(string(apiType)).Inc()
		return Decision{Reason: fmt.Sprintf("monthly %s limit reached (%d/%d %s)", apiType, used, monthly, unit)}
	}

	return Decision{Allowed: true}
}

type PeriodUsage struct {
	Tokens   int64           `json:"tokens"`
	Searches int64           `json:"searches"`
	Cost     decimal.Decimal `json:"cost"`
	Records  int64           `json:"records"`
}

type LimitSet struct {
	GeminiDailyTokens   int64 `json:"geminiDailyTokens"`
	GeminiMonthlyTokens int64 `json:"geminiMonthlyTokens"`
	SearchDaily         int64 `json:"searchDaily"`
	SearchMonthly       int64 `json:"searchMonthly"`
}

type Summary struct {
	Date    string      `json:"date"`
	Month   string      `json:"month"`
	Daily   PeriodUsage `json:"daily"`
	Monthly PeriodUsage `json:"monthly"`
	Limits  LimitSet    `json:"limits"`
}

// Summary reports today's and this month's consumption for both vendors.
func (l *Ledger) Summary(ctx context.Context) (*Summary, error) {
	now := l.now()
	today := now.Format(DateLayout)
	month := now.Format("2006-01")
	tomorrow := now.AddDate(0, 0, 1).Format(DateLayout)
	from, to, err := monthBounds(month)
	if err != nil {
		return nil, err
	}

	period := func(start, end string) (PeriodUsage, error) {
		g, err := l.store.Sum(ctx, APIGemini, start, end)
		if err != nil {
			return PeriodUsage{}, err
		}
		s, err := l.store.Sum(ctx, APIGoogleSearch, start, end)
		if err != nil {
			return PeriodUsage{}, err
		}
		return PeriodUsage{
			Tokens:   g.Tokens,
			Searches: s.Tokens,
			Cost:     g.Cost.Add(s.Cost),
			Records:  g.Calls + s.Calls,
		}, nil
	}

	daily, err := period(today, tomorrow)
	if err != nil {
		return nil, err
	}
	monthly, err := period(from, to)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Date:    today,
		Month:   month,
		Daily:   daily,
		Monthly: monthly,
		Limits: LimitSet{
			GeminiDailyTokens:   l.limits.GeminiDailyTokens,
			GeminiMonthlyTokens: l.limits.GeminiMonthlyTokens,
			SearchDaily:         l.limits.SearchDaily,
			SearchMonthly:       l.limits.SearchMonthly,
		},
	}, nil
}
