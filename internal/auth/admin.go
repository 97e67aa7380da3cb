package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/dispensary/internal/common"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type AdminUser struct {
	ID           string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Role         string    `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (AdminUser) TableName() string { return "admin_users" }

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Service struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
}

func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{db: db, secret: secret, ttl: ttl}
}

func (s *Service) CreateAdmin(ctx context.Context, username, email, password, role string) (*AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return nil, common.Invalid("username and a password of at least 8 characters required")
	}
	if role == "" {
		role = RoleAdmin
	}
	if role != RoleAdmin && role != RoleStaff {
		return nil, common.Invalid("role must be %q or %q", RoleAdmin, RoleStaff)
	}

	var cnt int64
	if err := s.db.WithContext(ctx).Model(&AdminUser{}).Where("username = ?", username).Count(&cnt).Error; err != nil {
		return nil, err
	}
	if cnt > 0 {
		return nil, fmt.Errorf("%w: username %s already exists", common.ErrConflict, username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	u := &AdminUser{ID: id, Username: username, Email: email, PasswordHash: hash, Role: role}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (string, *AdminUser, error) {
	var u AdminUser
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, common.ErrUnauthorized
		}
		return "", nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", nil, common.ErrUnauthorized
	}
	token, err := SignJWT(&u, s.secret, s.ttl)
	if err != nil {
		return "", nil, err
	}
	return token, &u, nil
}

func (s *Service) Token(admin *AdminUser) (string, error) {
	return SignJWT(admin, s.secret, s.ttl)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*AdminUser, error) {
	var u AdminUser
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("admin")
		}
		return nil, err
	}
	return &u, nil
}
