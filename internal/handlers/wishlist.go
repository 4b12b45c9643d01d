package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/service/token"
)

type WishlistHandler struct {
	DB *gorm.DB
}

// GetWishlist returns the caller's saved products, newest first.
func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var items []models.WishlistItem
	if err := h.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	products := make([]models.Product, 0, len(items))
	for _, it := range items {
		var p models.Product
		if err := h.DB.First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		products = append(products, p)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":    items,
		"products": products,
	})
}

// AddToWishlist saves an active product. Saving it twice is a no-op.
func (h *WishlistHandler) AddToWishlist(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND is_active = ?", productID, true).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	item := models.WishlistItem{UserID: userID, ProductID: uint(productID)}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.WishlistItem
		res := tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&existing)
		if res.Error == nil {
			item = existing
			return nil
		}
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, item)
}

func (h *WishlistHandler) RemoveFromWishlist(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "not in wishlist")
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": productID})
}
