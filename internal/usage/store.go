package usage

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals is an aggregate over a set of usage records. Calls counts the
// records summed.
type Totals struct {
	Tokens int64
	Cost   decimal.Decimal
	Calls  int64
}

// Store persists usage records. Date ranges are half-open: [from, to).
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	Sum(ctx context.Context, apiType APIType, from, to string) (Totals, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, rec *Record) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) Sum(ctx context.Context, apiType APIType, from, to string) (Totals, error) {
	var row struct {
		Tokens int64
		Cost   decimal.Decimal
		Calls  int64
	}
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Select("COALESCE(SUM(tokens_used), 0) AS tokens, COALESCE(SUM(cost), 0) AS cost, COUNT(*) AS calls").
		Where("api_type = ? AND date >= ? AND date < ?", apiType, from, to).
		Scan(&row).Error
	if err != nil {
		return Totals{}, err
	}
	return Totals{Tokens: row.Tokens, Cost: row.Cost.Round(6), Calls: row.Calls}, nil
}

// Recent lists the latest records, newest first.
func (s *GormStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Record
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
