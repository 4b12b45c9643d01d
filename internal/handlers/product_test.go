package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
)

type testEnv struct {
	DB *gorm.DB
	E  *echo.Echo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.WishlistItem{},
	))
	return &testEnv{DB: db, E: echo.New()}
}

func (env *testEnv) doJSONRequest(t *testing.T, method, target string, body interface{}, userID uint) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	if userID != 0 {
		c.Set("userID", userID)
		c.Set("role", "user")
	}
	return rec, c
}

func (env *testEnv) seedProduct(t *testing.T, title, condition string, price int64, views uint, createdAt time.Time) models.Product {
	t.Helper()
	p := models.Product{
		Title:     title,
		Price:     decimal.NewFromInt(price),
		SellerID:  10,
		Condition: condition,
		Views:     views,
		IsActive:  true,
		CreatedAt: createdAt,
	}
	require.NoError(t, env.DB.Create(&p).Error)
	return p
}

func listTitles(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var resp struct {
		Data []models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	titles := make([]string, len(resp.Data))
	for i, p := range resp.Data {
		titles[i] = p.Title
	}
	return titles
}

func TestGetProductsFilters(t *testing.T) {
	env := newTestEnv(t)
	h := &ProductHandler{DB: env.DB}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	env.seedProduct(t, "cheap new", "new", 10, 5, base)
	env.seedProduct(t, "mid used", "used", 50, 50, base.Add(time.Hour))
	env.seedProduct(t, "pricey new", "new", 200, 500, base.Add(2*time.Hour))

	rec, c := env.doJSONRequest(t, http.MethodGet, "/api/v1/products?condition=new", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.ElementsMatch(t, []string{"cheap new", "pricey new"}, listTitles(t, rec))

	rec, c = env.doJSONRequest(t, http.MethodGet, "/api/v1/products?min_price=20&max_price=100", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, []string{"mid used"}, listTitles(t, rec))
}

func TestGetProductsSorting(t *testing.T) {
	env := newTestEnv(t)
	h := &ProductHandler{DB: env.DB}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	env.seedProduct(t, "oldest", "new", 50, 500, base)
	env.seedProduct(t, "middle", "new", 10, 5, base.Add(time.Hour))
	env.seedProduct(t, "newest", "new", 200, 50, base.Add(2*time.Hour))

	// Default is newest first.
	rec, c := env.doJSONRequest(t, http.MethodGet, "/api/v1/products", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, []string{"newest", "middle", "oldest"}, listTitles(t, rec))

	rec, c = env.doJSONRequest(t, http.MethodGet, "/api/v1/products?sort_by=price", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, []string{"middle", "oldest", "newest"}, listTitles(t, rec))

	rec, c = env.doJSONRequest(t, http.MethodGet, "/api/v1/products?sort_by=-price", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, []string{"newest", "oldest", "middle"}, listTitles(t, rec))

	rec, c = env.doJSONRequest(t, http.MethodGet, "/api/v1/products?sort_by=-views", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, []string{"oldest", "newest", "middle"}, listTitles(t, rec))

	// Unknown sort falls back to newest first.
	rec, c = env.doJSONRequest(t, http.MethodGet, "/api/v1/products?sort_by=DROP", nil, 0)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, []string{"newest", "middle", "oldest"}, listTitles(t, rec))
}

func TestPatchProductPartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	h := &ProductHandler{DB: env.DB}

	p := models.Product{
		Title:         "original title",
		Description:   "original description",
		Price:         decimal.NewFromInt(50),
		DiscountPrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(40), Valid: true},
		Brand:         "acme",
		Condition:     "used",
		Quantity:      3,
		SellerID:      1,
		IsActive:      true,
	}
	require.NoError(t, env.DB.Create(&p).Error)

	rec, c := env.doJSONRequest(t, http.MethodPatch, "/api/v1/products/1", map[string]any{
		"title": "new title",
	}, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, env.DB.First(&got, p.ID).Error)
	require.Equal(t, "new title", got.Title)
	require.Equal(t, "original description", got.Description, "omitted fields must survive a patch")
	require.True(t, got.Price.Equal(decimal.NewFromInt(50)))
	require.True(t, got.DiscountPrice.Valid)
	require.True(t, got.DiscountPrice.Decimal.Equal(decimal.NewFromInt(40)))
	require.Equal(t, "acme", got.Brand)
	require.Equal(t, "used", got.Condition)
	require.Equal(t, uint(3), got.Quantity)
}

func TestPatchProductRejectsForeignSeller(t *testing.T) {
	env := newTestEnv(t)
	h := &ProductHandler{DB: env.DB}

	p := models.Product{Title: "theirs", Price: decimal.NewFromInt(50), SellerID: 1, IsActive: true}
	require.NoError(t, env.DB.Create(&p).Error)

	_, c := env.doJSONRequest(t, http.MethodPatch, "/api/v1/products/1", map[string]any{
		"title": "mine now",
	}, 2)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := h.PatchProduct(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}
