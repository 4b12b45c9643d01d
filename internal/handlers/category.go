package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
)

type CategoryHandler struct {
	DB *gorm.DB
}

type categoryWithCount struct {
	models.Category
	ProductCount int64 `json:"product_count"`
}

// ListCategories returns every category with its live product count.
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	out := make([]categoryWithCount, 0, len(categories))
	for _, cat := range categories {
		var count int64
		if err := h.DB.Model(&models.Product{}).
			Where("category_id = ? AND is_active = ?", cat.ID, true).
			Count(&count).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		out = append(out, categoryWithCount{Category: cat, ProductCount: count})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateCategory is admin-only; the route carries the admin middleware.
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    *uint  `json:"parent_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}

	if req.ParentID != nil {
		var parent models.Category
		if err := h.DB.First(&parent, *req.ParentID).Error; err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "parent category not found")
		}
	}

	category := models.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, category)
}
