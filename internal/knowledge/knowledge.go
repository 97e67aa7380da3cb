package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/dispensary/internal/common"
	"gorm.io/gorm"
)

// EmptyContext is sent to the model when no entry is active.
const EmptyContext = "No specific knowledge base entries are available. Use general cannabis cultivation knowledge."

// Entry is an admin-curated symptom/cause/solution note fed to the AI prompt.
type Entry struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Type        string    `gorm:"type:varchar(64);index" json:"type"`
	Symptoms    string    `gorm:"type:text" json:"symptoms"`
	Causes      string    `gorm:"type:text" json:"causes"`
	Solutions   string    `gorm:"type:text" json:"solutions"`
	IsActive    bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Entry) TableName() string { return "knowledge_base" }

type Input struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Symptoms    string `json:"symptoms"`
	Causes      string `json:"causes"`
	Solutions   string `json:"solutions"`
	IsActive    *bool  `json:"isActive"`
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Entry, error) {
	q := s.db.WithContext(ctx).Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []Entry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*Entry, error) {
	var e Entry
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("knowledge base entry")
		}
		return nil, err
	}
	return &e, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Entry, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, common.Invalid("title required")
	}
	e := &Entry{IsActive: true}
	apply(e, in)
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, id uint64, in Input) (*Entry, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, common.Invalid("title required")
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(e, in)
	if err := s.db.WithContext(ctx).Save(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&Entry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return common.NotFound("knowledge base entry")
	}
	return nil
}

func apply(e *Entry, in Input) {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Type = in.Type
	e.Symptoms = in.Symptoms
	e.Causes = in.Causes
	e.Solutions = in.Solutions
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
}

// BuildContext renders the active entries as prompt context.
func (s *Service) BuildContext(ctx context.Context) (string, error) {
	entries, err := s.List(ctx, true)
	if err != nil {
		return "", err
	}
	return Render(entries), nil
}

func Render(entries []Entry) string {
	if len(entries) == 0 {
		return EmptyContext
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s", e.Title)
		if e.Type != "" {
			fmt.Fprintf(&b, " (%s)", e.Type)
		}
		b.WriteString("\n")
		writeField(&b, "Description", e.Description)
		writeField(&b, "Symptoms", e.Symptoms)
		writeField(&b, "Causes", e.Causes)
		writeField(&b, "Solutions", e.Solutions)
	}
	return strings.TrimSpace(b.String())
}

func writeField(b *strings.Builder, label, v string) {
	if v = strings.TrimSpace(v); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}
