package auth

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/dispensary/internal/common"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	dsn := "file:auth_" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&AdminUser{}))
	return NewService(db, "test-secret", time.Hour)
}

func TestJWT_RoundTripCarriesClaims(t *testing.T) {
	admin := &AdminUser{ID: "01J0ADMIN", Username: "ana", Role: RoleAdmin}
	tok, err := SignJWT(admin, "s3cret", 24*time.Hour)
	require.NoError(t, err)

	c, err := ParseJWT(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "01J0ADMIN", c.AdminID)
	assert.Equal(t, "ana", c.Username)
	assert.Equal(t, RoleAdmin, c.Role)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), c.ExpiresAt.Time, time.Minute)

	_, err = ParseJWT(tok, "other")
	assert.Error(t, err)
}

func TestJWT_RejectsExpiredAndForeignAlg(t *testing.T) {
	admin := &AdminUser{ID: "01J0ADMIN", Username: "ana", Role: RoleAdmin}
	tok, err := SignJWT(admin, "s3cret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(tok, "s3cret")
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AdminID: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseJWT(none, "s3cret")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "ana", "ana@example.com", "short", "")
	assert.ErrorIs(t, err, common.ErrValidation)

	u, err := svc.CreateAdmin(ctx, "ana", "ana@example.com", "correct horse", "")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	_, err = svc.CreateAdmin(ctx, "ana", "", "another password", RoleStaff)
	assert.ErrorIs(t, err, common.ErrConflict)

	_, _, err = svc.Login(ctx, "ana", "wrong password")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, _, err = svc.Login(ctx, "bob", "correct horse")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	tok, got, err := svc.Login(ctx, "ana", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	claims, err := ParseJWT(tok, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.AdminID)
}
