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

type RatingHandler struct {
	DB *gorm.DB
}

type ratingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (r ratingRequest) validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	return nil
}

// RateProduct creates or replaces the caller's rating of a product.
func (h *RatingHandler) RateProduct(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	rating := models.ProductRating{
		ProductID: uint(productID),
		UserID:    userID,
		Rating:    req.Rating,
		Review:    req.Review,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.ProductRating
		res := tx.Where("product_id = ? AND user_id = ?", productID, userID).First(&existing)
		if res.Error == nil {
			existing.Rating = req.Rating
			existing.Review = req.Review
			rating = existing
			return tx.Save(&existing).Error
		}
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}
		return tx.Create(&rating).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, rating)
}

// RateSeller creates or replaces the caller's rating of another user and
// recomputes that user's aggregate seller rating.
func (h *RatingHandler) RateSeller(c echo.Context) error {
	raterID, err := token.UserID(c)
	if err != nil {
		return err
	}
	sellerID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if uint(sellerID) == raterID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot rate yourself")
	}

	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var seller models.User
	if err := h.DB.First(&seller, sellerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	rating := models.UserRating{
		UserID:    uint(sellerID),
		RatedByID: raterID,
		Rating:    req.Rating,
		Review:    req.Review,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.UserRating
		res := tx.Where("user_id = ? AND rated_by_id = ?", sellerID, raterID).First(&existing)
		if res.Error == nil {
			existing.Rating = req.Rating
			existing.Review = req.Review
			rating = existing
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
		} else if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			if err := tx.Create(&rating).Error; err != nil {
				return err
			}
		} else {
			return res.Error
		}

		var avg float64
		if err := tx.Model(&models.UserRating{}).
			Where("user_id = ?", sellerID).
			Select("AVG(rating)").
			Scan(&avg).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", sellerID).
			Update("seller_rating", avg).Error
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, rating)
}
