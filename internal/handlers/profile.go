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

type ProfileHandler struct {
	DB *gorm.DB
}

func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

// GetUser exposes another user's public profile, seller rating included.
func (h *ProfileHandler) GetUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":            user.ID,
		"username":      user.Username,
		"bio":           user.Bio,
		"city":          user.City,
		"country":       user.Country,
		"is_seller":     user.IsSeller,
		"seller_rating": user.SellerRating,
	})
}

func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Bio         string  `json:"bio"`
		PhoneNumber string  `json:"phone_number"`
		Address     string  `json:"address"`
		City        string  `json:"city"`
		State       string  `json:"state"`
		Country     string  `json:"country"`
		ZipCode     string  `json:"zip_code"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		IsSeller    bool    `json:"is_seller"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user.Bio = req.Bio
	user.PhoneNumber = req.PhoneNumber
	user.Address = req.Address
	user.City = req.City
	user.State = req.State
	user.Country = req.Country
	user.ZipCode = req.ZipCode
	user.Latitude = req.Latitude
	user.Longitude = req.Longitude
	user.IsSeller = req.IsSeller

	if err := h.DB.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}
