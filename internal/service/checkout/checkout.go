package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/logging"
	"github.com/openmarket/marketplace/internal/metrics"
	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/mykafka"
	"github.com/openmarket/marketplace/internal/payment"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrProductUnavailable   = errors.New("product unavailable")
	ErrPaymentAuthorization = errors.New("payment authorization failed")
)

// Shipping is the snapshot copied onto the order at checkout time. When
// nil, the buyer's profile fields are used instead.
type Shipping struct {
	Address string `json:"shipping_address"`
	City    string `json:"shipping_city"`
	State   string `json:"shipping_state"`
	Country string `json:"shipping_country"`
	ZipCode string `json:"shipping_zip_code"`
	Phone   string `json:"shipping_phone"`
}

// Orchestrator converts a cart into an order. The order and its items
// are committed in one transaction before the external authorization
// call; a failed authorization deletes them again so no partial order
// survives a failed payment attempt.
type Orchestrator struct {
	DB       *gorm.DB
	Payments payment.Client
	Producer mykafka.Publisher
	Currency string
}

func (o *Orchestrator) Checkout(ctx context.Context, buyerID uint, ship *Shipping) (*models.Order, []models.OrderItem, error) {
	l := logging.FromContext(ctx).With("component", "checkout", "buyer_id", buyerID)
	metrics.CheckoutAttemptsTotal.Inc()

	if ship == nil {
		var buyer models.User
		if err := o.DB.WithContext(ctx).First(&buyer, buyerID).Error; err != nil {
			return nil, nil, fmt.Errorf("load buyer profile: %w", err)
		}
		ship = &Shipping{
			Address: buyer.Address,
			City:    buyer.City,
			State:   buyer.State,
			Country: buyer.Country,
			ZipCode: buyer.ZipCode,
			Phone:   buyer.PhoneNumber,
		}
	}

	var (
		order      models.Order
		orderItems []models.OrderItem
	)

	txErr := o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", buyerID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		orderItems = make([]models.OrderItem, 0, len(items))

		type snapshot struct {
			productID uint
			sellerID  uint
			price     decimal.Decimal
			quantity  uint
		}
		snaps := make([]snapshot, 0, len(items))
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrProductUnavailable, it.ProductID)
				}
				return err
			}
			unit := p.EffectivePrice()
			total = total.Add(unit.Mul(decimal.NewFromInt(int64(it.Quantity))))
			snaps = append(snaps, snapshot{
				productID: p.ID,
				sellerID:  p.SellerID,
				price:     unit,
				quantity:  it.Quantity,
			})
		}

		order = models.Order{
			BuyerID:         buyerID,
			ShippingAddress: ship.Address,
			ShippingCity:    ship.City,
			ShippingState:   ship.State,
			ShippingCountry: ship.Country,
			ShippingZipCode: ship.ZipCode,
			ShippingPhone:   ship.Phone,
			Status:          models.OrderStatusPending,
			TotalPrice:      total,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, sn := range snaps {
			oi := models.OrderItem{
				OrderID:   order.ID,
				ProductID: sn.productID,
				SellerID:  sn.sellerID,
				Price:     sn.price,
				Quantity:  sn.quantity,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			orderItems = append(orderItems, oi)
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}

	// The order exists so the authorization call can carry a stable
	// reference; it is kept only if that call succeeds.
	start := time.Now()
	auth, err := o.Payments.Authorize(ctx, payment.AuthorizationRequest{
		AmountMinor: order.TotalPrice.Shift(2).IntPart(),
		Currency:    o.Currency,
		Description: fmt.Sprintf("Order %d payment", order.ID),
		OrderID:     order.ID,
	})
	metrics.PaymentAuthLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PaymentAuthFailedTotal.Inc()
		l.Warn("authorization_failed", "order_id", order.ID, "error", err)
		if rbErr := o.rollback(ctx, order.ID); rbErr != nil {
			l.Error("rollback_failed", "order_id", order.ID, "error", rbErr)
			return nil, nil, fmt.Errorf("rollback after failed authorization: %w", rbErr)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrPaymentAuthorization, err)
	}

	if err := o.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("payment_id", auth.ID).Error; err != nil {
		return nil, nil, err
	}
	order.PaymentID = auth.ID

	// Commit point: the order is durable from here on, whatever the
	// confirmation step does later.
	if err := o.DB.WithContext(ctx).
		Where("user_id = ?", buyerID).
		Delete(&models.CartItem{}).Error; err != nil {
		l.Error("cart_clear_failed", "order_id", order.ID, "error", err)
	}

	o.publish(ctx, map[string]any{
		"type":     "order_created",
		"buyerID":  buyerID,
		"orderID":  order.ID,
		"total":    order.TotalPrice,
		"payment":  order.PaymentID,
		"itemsLen": len(orderItems),
	})

	metrics.OrdersCreatedTotal.Inc()
	l.Info("checkout_success", "order_id", order.ID, "total", order.TotalPrice.String())
	return &order, orderItems, nil
}

// rollback deletes the order and its items after a failed authorization.
// The cart was not touched yet, so the buyer can simply resubmit.
func (o *Orchestrator) rollback(ctx context.Context, orderID uint) error {
	return o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, orderID).Error
	})
}

func (o *Orchestrator) publish(ctx context.Context, event map[string]any) {
	if o.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := o.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "error", err)
	}
}
