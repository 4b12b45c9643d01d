package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/mykafka"
	cartsvc "github.com/openmarket/marketplace/internal/service/cart"
	"github.com/openmarket/marketplace/internal/service/token"
)

type CartHandler struct {
	Cart     *cartsvc.Service
	Producer mykafka.Publisher
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func cartError(err error) error {
	switch {
	case errors.Is(err, cartsvc.ErrInvalidQuantity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, cartsvc.ErrProductUnavailable):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, cartsvc.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	items, err := h.Cart.Lines(ctx, userID)
	if err != nil {
		return cartError(err)
	}
	total, err := h.Cart.Total(ctx, userID)
	if err != nil {
		return cartError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Quantity  int  `json:"quantity"`
		ProductID uint `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Cart.Add(c.Request().Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return cartError(err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

// UpdateQuantity sets the absolute quantity of a line. Zero or a
// negative value removes the line.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Cart.SetQuantity(c.Request().Context(), userID, uint(id), req.Quantity)
	if err != nil {
		return cartError(err)
	}

	if item == nil {
		h.publish(c, map[string]any{
			"type":         "cart_item_deleted",
			"userID":       userID,
			"deleted_item": id,
		})
		return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
	}

	h.publish(c, map[string]any{
		"type":         "cart_item_updated",
		"userID":       userID,
		"id":           item.ID,
		"new_quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.Cart.Remove(c.Request().Context(), userID, uint(id)); err != nil {
		return cartError(err)
	}

	h.publish(c, map[string]any{
		"type":         "cart_item_deleted",
		"userID":       userID,
		"deleted_item": id,
	})
	return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	if err := h.Cart.Clear(c.Request().Context(), userID); err != nil {
		return cartError(err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return c.JSON(http.StatusOK, []models.CartItem{})
}
