package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/mykafka"
	"github.com/openmarket/marketplace/internal/service/search"
	"github.com/openmarket/marketplace/internal/service/token"
	"github.com/openmarket/marketplace/internal/util"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ProductHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
	ES       *elasticsearch.Client
	Index    string
}

func errorResponse(c echo.Context, code int, err error) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: err.Error(),
	})
}

// sortOrder maps the sort_by query param to an ORDER BY clause.
// Unknown values fall back to newest first.
func sortOrder(sortBy string) string {
	switch sortBy {
	case "created_at":
		return "created_at ASC"
	case "price":
		return "price ASC"
	case "-price":
		return "price DESC"
	case "-views":
		return "views DESC"
	default:
		return "created_at DESC"
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.Index, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// view counter, best effort
	if err := h.DB.Model(&product).Update("views", gorm.Expr("views + 1")).Error; err != nil {
		c.Logger().Errorf("view counter error: %v", err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{}).Where("is_active = ?", true)
	if cat := c.QueryParam("category"); cat != "" {
		q = q.Where("category_id = ?", parseIntDefault(cat, 0))
	}
	if seller := c.QueryParam("seller"); seller != "" {
		q = q.Where("seller_id = ?", parseIntDefault(seller, 0))
	}
	if cond := c.QueryParam("condition"); cond != "" {
		q = q.Where("condition = ?", cond)
	}
	if min := c.QueryParam("min_price"); min != "" {
		if v, err := decimal.NewFromString(min); err == nil {
			q = q.Where("price >= ?", v)
		}
	}
	if max := c.QueryParam("max_price"); max != "" {
		if v, err := decimal.NewFromString(max); err == nil {
			q = q.Where("price <= ?", v)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.Product
	if err := q.Order(sortOrder(c.QueryParam("sort_by"))).
		Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

type productRequest struct {
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	CategoryID    uint                `json:"category_id"`
	Condition     string              `json:"condition"`
	Brand         string              `json:"brand"`
	Quantity      uint                `json:"quantity"`
	Latitude      float64             `json:"latitude"`
	Longitude     float64             `json:"longitude"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	prod := models.Product{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		CategoryID:    req.CategoryID,
		SellerID:      sellerID,
		Condition:     req.Condition,
		Brand:         req.Brand,
		Quantity:      req.Quantity,
		IsActive:      true,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	}

	// A product without coordinates inherits the seller's.
	if prod.Latitude == 0 && prod.Longitude == 0 {
		var seller models.User
		if err := h.DB.First(&seller, sellerID).Error; err == nil {
			prod.Latitude = seller.Latitude
			prod.Longitude = seller.Longitude
		}
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	h.index(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"title":     prod.Title,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if prod.SellerID != sellerID {
		return echo.NewHTTPError(http.StatusForbidden, "not your product")
	}

	// Pointer fields so an omitted key leaves the stored value alone.
	var req struct {
		Title         *string              `json:"title"`
		Description   *string              `json:"description"`
		Price         *decimal.Decimal     `json:"price"`
		DiscountPrice *decimal.NullDecimal `json:"discount_price"`
		CategoryID    *uint                `json:"category_id"`
		Condition     *string              `json:"condition"`
		Brand         *string              `json:"brand"`
		Quantity      *uint                `json:"quantity"`
		IsActive      *bool                `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	if req.Title != nil {
		prod.Title = *req.Title
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
		}
		prod.Price = *req.Price
	}
	if req.DiscountPrice != nil {
		prod.DiscountPrice = *req.DiscountPrice
	}
	if req.CategoryID != nil {
		prod.CategoryID = *req.CategoryID
	}
	if req.Condition != nil {
		prod.Condition = *req.Condition
	}
	if req.Brand != nil {
		prod.Brand = *req.Brand
	}
	if req.Quantity != nil {
		prod.Quantity = *req.Quantity
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	h.index(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"title":     prod.Title,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeleteProduct(ctx, h.ES, h.Index, uint(id)); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
