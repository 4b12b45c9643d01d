package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openmarket/marketplace/internal/service/checkout"
	ordersvc "github.com/openmarket/marketplace/internal/service/order"
	"github.com/openmarket/marketplace/internal/service/token"
	"github.com/openmarket/marketplace/internal/util"
)

type OrderHandler struct {
	Checkout *checkout.Orchestrator
	Orders   *ordersvc.Service
}

func orderError(err error) error {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, "your cart is empty")
	case errors.Is(err, checkout.ErrProductUnavailable):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrPaymentAuthorization):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ordersvc.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, ordersvc.ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	case errors.Is(err, ordersvc.ErrNoMatchingItems):
		return echo.NewHTTPError(http.StatusForbidden, "you don't have any items in this order")
	case errors.Is(err, ordersvc.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// MakeOrder runs the checkout sequence: order snapshot, payment
// authorization, commit or rollback.
func (h *OrderHandler) MakeOrder(c echo.Context) error {
	buyerID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		SameAsProfile bool `json:"same_as_profile"`
		checkout.Shipping
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ship := &req.Shipping
	if req.SameAsProfile {
		ship = nil
	}

	ord, items, err := h.Checkout.Checkout(c.Request().Context(), buyerID, ship)
	if err != nil {
		return orderError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":    ord.ID,
		"total_price": ord.TotalPrice,
		"status":      ord.Status,
		"payment_id":  ord.PaymentID,
		"items":       items,
	})
}

// PaymentSuccess is the redirect target after the processor reports a
// completed payment. Safe to hit twice; the transition only applies once.
func (h *OrderHandler) PaymentSuccess(c echo.Context) error {
	buyerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ord, err := h.Orders.ConfirmPayment(c.Request().Context(), buyerID, uint(orderID))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, ord)
}

// PaymentCancel is the redirect target after the buyer abandoned the
// processor's payment page.
func (h *OrderHandler) PaymentCancel(c echo.Context) error {
	buyerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ord, err := h.Orders.CancelPayment(c.Request().Context(), buyerID, uint(orderID))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, ord)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	buyerID, err := token.UserID(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	offset, limit := util.Calculate(page, size)

	orders, err := h.Orders.ListOrders(c.Request().Context(), buyerID, offset, limit)
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	buyerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	ord, items, err := h.Orders.GetOrder(ctx, buyerID, uint(orderID))
	if err != nil {
		return orderError(err)
	}
	txns, err := h.Orders.Transactions(ctx, uint(orderID))
	if err != nil {
		return orderError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order":        ord,
		"items":        items,
		"transactions": txns,
	})
}

func (h *OrderHandler) ListSales(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}

	sales, err := h.Orders.ListSales(c.Request().Context(), sellerID)
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, sales)
}

func (h *OrderHandler) SaleDetail(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	sale, err := h.Orders.SaleDetail(c.Request().Context(), sellerID, uint(orderID))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, sale)
}

// UpdateStatus moves the order-wide status by a seller's request.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	sellerID, err := token.UserID(c)
	if err != nil {
		return err
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ord, err := h.Orders.UpdateStatus(c.Request().Context(), sellerID, uint(orderID), req.Status)
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, ord)
}
