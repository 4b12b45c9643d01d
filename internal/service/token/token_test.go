package token

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))
	return db
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	db := newTestDB(t)
	secret := []byte("refresh-secret")

	raw, jti, err := SignRefreshToken(7, "user", secret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, raw, jti, "user", 7))

	claims, err := ValidateRefresh(raw, secret, db)
	require.NoError(t, err)
	require.Equal(t, float64(7), claims["sub"])
	require.Equal(t, "user", claims["role"])

	// Only the hash is stored.
	var stored models.RefreshToken
	require.NoError(t, db.First(&stored).Error)
	require.NotEqual(t, raw, stored.Token)
	require.Len(t, stored.Token, 64)
}

func TestValidateRefreshRejectsRevoked(t *testing.T) {
	db := newTestDB(t)
	secret := []byte("refresh-secret")

	raw, jti, err := SignRefreshToken(7, "user", secret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, raw, jti, "user", 7))
	require.NoError(t, RevokeRefreshToken(db, raw))

	_, err = ValidateRefresh(raw, secret, db)
	require.Error(t, err)
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	db := newTestDB(t)
	secret := []byte("shared-secret")

	access, err := SignAccessToken(7, "user", secret)
	require.NoError(t, err)

	_, err = ValidateRefresh(access, secret, db)
	require.Error(t, err, "an access token must not pass as a refresh token")
}

func TestRotateTokenRevokesOld(t *testing.T) {
	db := newTestDB(t)
	svc := &TokenService{DB: db, RefreshSecret: []byte("refresh"), JWTSecret: []byte("access")}

	raw, jti, err := SignRefreshToken(7, "user", svc.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, raw, jti, "user", 7))

	newAccess, newRefresh, claims, err := svc.RotateToken(raw)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)
	require.Equal(t, float64(7), claims["sub"])

	// The old token is burned; the new one still validates.
	_, err = ValidateRefresh(raw, svc.RefreshSecret, db)
	require.Error(t, err)
	_, err = ValidateRefresh(newRefresh, svc.RefreshSecret, db)
	require.NoError(t, err)
}

func TestAutoRefreshMiddleware(t *testing.T) {
	db := newTestDB(t)
	svc := &TokenService{DB: db, RefreshSecret: []byte("refresh"), JWTSecret: []byte("access")}
	e := echo.New()

	access, err := SignAccessToken(7, "user", svc.JWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := svc.AutoRefreshMiddleware(func(c echo.Context) error {
		called = true
		id, err := UserID(c)
		require.NoError(t, err)
		require.Equal(t, uint(7), id)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	require.True(t, called)
}

func TestAutoRefreshMiddlewareRejectsAnonymous(t *testing.T) {
	db := newTestDB(t)
	svc := &TokenService{DB: db, RefreshSecret: []byte("refresh"), JWTSecret: []byte("access")}
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := svc.AutoRefreshMiddleware(func(c echo.Context) error {
		t.Fatal("handler must not run without auth cookies")
		return nil
	})
	err := handler(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAdminMiddlewareRejectsUserRole(t *testing.T) {
	db := newTestDB(t)
	svc := &TokenService{DB: db, RefreshSecret: []byte("refresh"), JWTSecret: []byte("access")}
	e := echo.New()

	access, err := SignAccessToken(7, "user", svc.JWTSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: access})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := svc.AutoRefreshMiddlewareAdmin(func(c echo.Context) error {
		t.Fatal("handler must not run for non-admin role")
		return nil
	})
	err = handler(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}
