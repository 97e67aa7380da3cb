package usage

import (
	"time"

	"github.com/shopspring/decimal"
)

type APIType string

const (
	APIGemini       APIType = "gemini"
	APIGoogleSearch APIType = "google_search"
)

func (t APIType) Valid() bool { return t == APIGemini || t == APIGoogleSearch }

// DateLayout is the day key stored on every record.
const DateLayout = "2006-01-02"

// Record is one metered vendor call. TokensUsed holds the number of searches
// for google_search records. Rows are insert-only.
type Record struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	APIType    APIType         `gorm:"type:varchar(32);not null;index:idx_usage_type_date,priority:1" json:"apiType"`
	Endpoint   string          `gorm:"type:varchar(128);not null" json:"endpoint"`
	TokensUsed int64           `gorm:"not null;default:0" json:"tokensUsed"`
	Cost       decimal.Decimal `gorm:"type:decimal(12,6);not null" json:"cost"`
	Date       string          `gorm:"type:char(10);not null;index:idx_usage_type_date,priority:2" json:"date"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func (Record) TableName() string { return "api_usage" }
