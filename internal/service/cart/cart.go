package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
)

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrNotFound           = errors.New("cart item not found")
)

// Service owns all mutations of a buyer's cart. Totals are recomputed
// from the product's current effective price on every read, never cached.
type Service struct {
	DB *gorm.DB
}

// Add creates a line for (buyer, product) or increments an existing one.
// The increment runs as a single UPDATE expression so concurrent adds to
// the same line cannot lose updates.
func (s *Service) Add(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	var product models.Product
	if err := s.DB.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, productID)
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, productID)
	}

	var item models.CartItem
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			item = models.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  uint(quantity),
			}
			return tx.Create(&item).Error
		}
		return tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &item, nil
}

// SetQuantity updates a line's quantity. A quantity of zero or less
// removes the line; that is the documented policy, not an error.
func (s *Service) SetQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if quantity <= 0 {
		if err := s.DB.WithContext(ctx).Delete(&item).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	item.Quantity = uint(quantity)
	if err := s.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) Remove(ctx context.Context, userID, itemID uint) error {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every line of the buyer's cart. Idempotent.
func (s *Service) Clear(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

func (s *Service) Lines(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Total sums effective price times quantity over all lines. Product price
// changes propagate to an uncommitted cart instantly because nothing here
// is cached.
func (s *Service) Total(ctx context.Context, userID uint) (decimal.Decimal, error) {
	items, err := s.Lines(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, it := range items {
		var p models.Product
		if err := s.DB.WithContext(ctx).First(&p, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return decimal.Zero, fmt.Errorf("%w: product %d", ErrProductUnavailable, it.ProductID)
			}
			return decimal.Zero, err
		}
		total = total.Add(p.EffectivePrice().Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total, nil
}
