package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/openmarket/marketplace/internal/models"
)

func TestAddToWishlistIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	h := &WishlistHandler{DB: env.DB}

	p := env.seedProduct(t, "saved", "new", 20, 0, time.Now())

	for i := 0; i < 2; i++ {
		rec, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/wishlist/1", nil, 1)
		c.SetParamNames("id")
		c.SetParamValues("1")
		require.NoError(t, h.AddToWishlist(c))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	var count int64
	require.NoError(t, env.DB.Model(&models.WishlistItem{}).
		Where("user_id = ? AND product_id = ?", 1, p.ID).
		Count(&count).Error)
	require.Equal(t, int64(1), count, "saving twice keeps a single line")
}

func TestAddToWishlistRejectsInactiveProduct(t *testing.T) {
	env := newTestEnv(t)
	h := &WishlistHandler{DB: env.DB}

	p := env.seedProduct(t, "gone", "new", 20, 0, time.Now())
	require.NoError(t, env.DB.Model(&p).Update("is_active", false).Error)

	_, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/wishlist/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := h.AddToWishlist(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestGetWishlist(t *testing.T) {
	env := newTestEnv(t)
	h := &WishlistHandler{DB: env.DB}

	pa := env.seedProduct(t, "first", "new", 20, 0, time.Now())
	pb := env.seedProduct(t, "second", "new", 30, 0, time.Now())
	require.NoError(t, env.DB.Create(&models.WishlistItem{UserID: 1, ProductID: pa.ID}).Error)
	require.NoError(t, env.DB.Create(&models.WishlistItem{UserID: 1, ProductID: pb.ID}).Error)
	require.NoError(t, env.DB.Create(&models.WishlistItem{UserID: 2, ProductID: pa.ID}).Error)

	rec, c := env.doJSONRequest(t, http.MethodGet, "/api/v1/wishlist", nil, 1)
	require.NoError(t, h.GetWishlist(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items    []models.WishlistItem `json:"items"`
		Products []models.Product      `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2, "only the caller's lines")
	require.Len(t, resp.Products, 2)
}

func TestRemoveFromWishlist(t *testing.T) {
	env := newTestEnv(t)
	h := &WishlistHandler{DB: env.DB}

	p := env.seedProduct(t, "saved", "new", 20, 0, time.Now())
	require.NoError(t, env.DB.Create(&models.WishlistItem{UserID: 1, ProductID: p.ID}).Error)

	rec, c := env.doJSONRequest(t, http.MethodDelete, "/api/v1/wishlist/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.RemoveFromWishlist(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Removing again reports not found.
	_, c = env.doJSONRequest(t, http.MethodDelete, "/api/v1/wishlist/1", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	err := h.RemoveFromWishlist(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}
