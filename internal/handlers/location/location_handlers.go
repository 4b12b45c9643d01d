package location

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/geo"
	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/service/token"
)

type LocationHandler struct {
	DB *gorm.DB
}

type storeRequest struct {
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Country       string  `json:"country"`
	ZipCode       string  `json:"zip_code"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	PhoneNumber   string  `json:"phone_number"`
	BusinessHours string  `json:"business_hours"`
}

func (h *LocationHandler) CreateStore(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req storeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Address == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and address required")
	}

	store := models.StoreLocation{
		Name:          req.Name,
		SellerID:      sellerID,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		Country:       req.Country,
		ZipCode:       req.ZipCode,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		PhoneNumber:   req.PhoneNumber,
		BusinessHours: req.BusinessHours,
		IsActive:      true,
	}
	if err := h.DB.Create(&store).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, store)
}

func (h *LocationHandler) UpdateStore(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var store models.StoreLocation
	if err := h.DB.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "store not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if store.SellerID != sellerID {
		return echo.NewHTTPError(http.StatusForbidden, "not your store")
	}

	var req storeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	store.Name = req.Name
	store.Address = req.Address
	store.City = req.City
	store.State = req.State
	store.Country = req.Country
	store.ZipCode = req.ZipCode
	store.Latitude = req.Latitude
	store.Longitude = req.Longitude
	store.PhoneNumber = req.PhoneNumber
	store.BusinessHours = req.BusinessHours

	if err := h.DB.Save(&store).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, store)
}

func (h *LocationHandler) DeleteStore(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	res := h.DB.Where("id = ? AND seller_id = ?", id, sellerID).Delete(&models.StoreLocation{})
	if res.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "store not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *LocationHandler) ListStores(c echo.Context) error {
	var stores []models.StoreLocation
	if err := h.DB.Where("is_active = ?", true).Find(&stores).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stores)
}

type nearbyProduct struct {
	models.Product
	Distance float64 `json:"distance"`
}

type nearbyStore struct {
	models.StoreLocation
	Distance float64 `json:"distance"`
}

// Nearby filters active products and stores to those within the given
// radius of a point, sorted by ascending distance.
func (h *LocationHandler) Nearby(c echo.Context) error {
	lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if latErr != nil || lngErr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lng required")
	}
	radius, err := strconv.ParseFloat(c.QueryParam("distance"), 64)
	if err != nil || radius <= 0 {
		radius = 25
	}
	center := geo.Point{Latitude: lat, Longitude: lng}

	var products []models.Product
	if err := h.DB.Where("is_active = ?", true).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	nearProducts := make([]nearbyProduct, 0)
	for _, p := range products {
		d := geo.Distance(center, geo.Point{Latitude: p.Latitude, Longitude: p.Longitude})
		if d <= radius {
			nearProducts = append(nearProducts, nearbyProduct{Product: p, Distance: d})
		}
	}
	sort.Slice(nearProducts, func(i, j int) bool {
		return nearProducts[i].Distance < nearProducts[j].Distance
	})

	var stores []models.StoreLocation
	if err := h.DB.Where("is_active = ?", true).Find(&stores).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	nearStores := make([]nearbyStore, 0)
	for _, s := range stores {
		d := geo.Distance(center, geo.Point{Latitude: s.Latitude, Longitude: s.Longitude})
		if d <= radius {
			nearStores = append(nearStores, nearbyStore{StoreLocation: s, Distance: d})
		}
	}
	sort.Slice(nearStores, func(i, j int) bool {
		return nearStores[i].Distance < nearStores[j].Distance
	})

	return c.JSON(http.StatusOK, echo.Map{
		"products": nearProducts,
		"stores":   nearStores,
	})
}
