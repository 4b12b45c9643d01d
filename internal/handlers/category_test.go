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

func TestCreateCategory(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}

	rec, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{
		"name":        "Electronics",
		"description": "Gadgets",
	}, 1)
	require.NoError(t, h.CreateCategory(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Electronics", created.Name)
	require.Nil(t, created.ParentID)

	// A child under a real parent works.
	rec, c = env.doJSONRequest(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{
		"name":      "Phones",
		"parent_id": created.ID,
	}, 1)
	require.NoError(t, h.CreateCategory(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateCategoryValidation(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}

	_, c := env.doJSONRequest(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{
		"description": "nameless",
	}, 1)
	err := h.CreateCategory(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	_, c = env.doJSONRequest(t, http.MethodPost, "/api/v1/admin/categories", map[string]any{
		"name":      "Orphans",
		"parent_id": 999,
	}, 1)
	err = h.CreateCategory(c)
	require.Error(t, err)
	httpErr, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestListCategoriesWithCounts(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}

	cat := models.Category{Name: "Electronics"}
	require.NoError(t, env.DB.Create(&cat).Error)
	empty := models.Category{Name: "Books"}
	require.NoError(t, env.DB.Create(&empty).Error)

	p := env.seedProduct(t, "phone", "new", 200, 0, time.Now())
	require.NoError(t, env.DB.Model(&p).Update("category_id", cat.ID).Error)
	inactive := env.seedProduct(t, "broken phone", "used", 10, 0, time.Now())
	require.NoError(t, env.DB.Model(&inactive).
		Updates(map[string]interface{}{"category_id": cat.ID, "is_active": false}).Error)

	rec, c := env.doJSONRequest(t, http.MethodGet, "/api/v1/categories", nil, 0)
	require.NoError(t, h.ListCategories(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		models.Category
		ProductCount int64 `json:"product_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	counts := map[string]int64{}
	for _, entry := range resp {
		counts[entry.Name] = entry.ProductCount
	}
	require.Equal(t, int64(1), counts["Electronics"], "inactive products don't count")
	require.Equal(t, int64(0), counts["Books"])
}
