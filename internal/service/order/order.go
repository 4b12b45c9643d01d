package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/logging"
	"github.com/openmarket/marketplace/internal/metrics"
	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/mykafka"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrNoMatchingItems = errors.New("no matching items")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Service drives the order state machine after checkout and keeps the
// per-seller settlement ledger.
type Service struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
}

func newTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// ConfirmPayment applies the pending -> processing transition and writes
// one completed Transaction per distinct seller in the order's items.
// The transition is a check-and-set on status inside the same database
// transaction that creates the ledger rows, so invoking it twice for the
// same order never duplicates Transactions.
func (s *Service) ConfirmPayment(ctx context.Context, buyerID, orderID uint) (*models.Order, error) {
	l := logging.FromContext(ctx).With("component", "order", "order_id", orderID)

	var ord models.Order
	applied := false

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ord, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if ord.BuyerID != buyerID {
			return ErrNotAuthorized
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusProcessing,
				"payment_status": "paid",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already confirmed, cancelled or further along: nothing to
			// apply. Re-read so the caller sees current state.
			return tx.First(&ord, orderID).Error
		}
		applied = true

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}

		subtotals := make(map[uint]decimal.Decimal)
		sellers := make([]uint, 0, len(items))
		for _, it := range items {
			if _, ok := subtotals[it.SellerID]; !ok {
				sellers = append(sellers, it.SellerID)
			}
			subtotals[it.SellerID] = subtotals[it.SellerID].Add(it.LineTotal())
		}

		for _, sellerID := range sellers {
			txn := models.Transaction{
				OrderID:       orderID,
				SellerID:      sellerID,
				BuyerID:       ord.BuyerID,
				Amount:        subtotals[sellerID],
				Status:        models.TransactionStatusCompleted,
				PaymentID:     ord.PaymentID,
				TransactionID: newTransactionID(),
			}
			if err := tx.Create(&txn).Error; err != nil {
				return err
			}
			metrics.TransactionsCreatedTotal.Inc()
		}

		return tx.First(&ord, orderID).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	if applied {
		metrics.OrderTransitionsTotal.WithLabelValues(models.OrderStatusProcessing).Inc()
		s.publish(ctx, map[string]any{
			"type":    "payment_confirmed",
			"orderID": orderID,
			"buyerID": buyerID,
		})
		l.Info("payment_confirmed")
	} else {
		l.Info("payment_confirmation_skipped", "status", ord.Status)
	}
	return &ord, nil
}

// CancelPayment applies the pending -> cancelled transition after the
// buyer abandoned the processor's payment page. No transactions are
// created. Idempotent through the same check-and-set as ConfirmPayment.
func (s *Service) CancelPayment(ctx context.Context, buyerID, orderID uint) (*models.Order, error) {
	var ord models.Order
	applied := false

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ord, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if ord.BuyerID != buyerID {
			return ErrNotAuthorized
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":         models.OrderStatusCancelled,
				"payment_status": "cancelled",
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		return tx.First(&ord, orderID).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	if applied {
		metrics.OrderTransitionsTotal.WithLabelValues(models.OrderStatusCancelled).Inc()
		s.publish(ctx, map[string]any{
			"type":    "payment_cancelled",
			"orderID": orderID,
			"buyerID": buyerID,
		})
	}
	return &ord, nil
}

// UpdateStatus lets a seller with items in the order move the order-wide
// status. Values outside the enumerated set and transitions out of a
// terminal state are rejected with no mutation.
func (s *Service) UpdateStatus(ctx context.Context, sellerID, orderID uint, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var ord models.Order
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND seller_id = ?", orderID, sellerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNoMatchingItems
		}

		if err := tx.First(&ord, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if models.TerminalOrderStatus(ord.Status) {
			return fmt.Errorf("%w: order already %s", ErrInvalidStatus, ord.Status)
		}

		ord.Status = status
		return tx.Save(&ord).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	metrics.OrderTransitionsTotal.WithLabelValues(status).Inc()
	s.publish(ctx, map[string]any{
		"type":     "order_status_updated",
		"orderID":  orderID,
		"sellerID": sellerID,
		"status":   status,
	})
	return &ord, nil
}

func (s *Service) ListOrders(ctx context.Context, buyerID uint, offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns the order with its items, only to its buyer.
func (s *Service) GetOrder(ctx context.Context, buyerID, orderID uint) (*models.Order, []models.OrderItem, error) {
	var ord models.Order
	if err := s.DB.WithContext(ctx).First(&ord, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if ord.BuyerID != buyerID {
		return nil, nil, ErrNotAuthorized
	}

	var items []models.OrderItem
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &ord, items, nil
}

func (s *Service) Transactions(ctx context.Context, orderID uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// Sale is one order seen from a single seller's side: only that seller's
// items and their subtotal.
type Sale struct {
	Order    models.Order       `json:"order"`
	Items    []models.OrderItem `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

func (s *Service) ListSales(ctx context.Context, sellerID uint) ([]Sale, error) {
	var items []models.OrderItem
	if err := s.DB.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("order_id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	byOrder := make(map[uint]*Sale)
	orderIDs := make([]uint, 0)
	for _, it := range items {
		sale, ok := byOrder[it.OrderID]
		if !ok {
			sale = &Sale{Subtotal: decimal.Zero}
			byOrder[it.OrderID] = sale
			orderIDs = append(orderIDs, it.OrderID)
		}
		sale.Items = append(sale.Items, it)
		sale.Subtotal = sale.Subtotal.Add(it.LineTotal())
	}

	sales := make([]Sale, 0, len(orderIDs))
	for _, id := range orderIDs {
		var ord models.Order
		if err := s.DB.WithContext(ctx).First(&ord, id).Error; err != nil {
			return nil, err
		}
		sale := byOrder[id]
		sale.Order = ord
		sales = append(sales, *sale)
	}
	return sales, nil
}

func (s *Service) SaleDetail(ctx context.Context, sellerID, orderID uint) (*Sale, error) {
	var items []models.OrderItem
	if err := s.DB.WithContext(ctx).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoMatchingItems
	}

	var ord models.Order
	if err := s.DB.WithContext(ctx).First(&ord, orderID).Error; err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	return &Sale{Order: ord, Items: items, Subtotal: subtotal}, nil
}

func (s *Service) publish(ctx context.Context, event map[string]any) {
	if s.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "error", err)
	}
}
