package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/models"
	"github.com/openmarket/marketplace/internal/payment"
)

type fakePayments struct {
	err     error
	calls   int
	lastReq payment.AuthorizationRequest
}

func (f *fakePayments) Authorize(ctx context.Context, req payment.AuthorizationRequest) (*payment.Authorization, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Authorization{ID: "pi_test_123", Status: "requires_confirmation"}, nil
}

type stubPublisher struct {
	events []interface{}
}

func (p *stubPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	p.events = append(p.events, event)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))
	return db
}

func newOrchestrator(db *gorm.DB, pay *fakePayments) (*Orchestrator, *stubPublisher) {
	pub := &stubPublisher{}
	return &Orchestrator{DB: db, Payments: pay, Producer: pub, Currency: "usd"}, pub
}

func seedCart(t *testing.T, db *gorm.DB, buyerID uint) (models.Product, models.Product) {
	t.Helper()
	pa := models.Product{
		Title:    "plain",
		Price:    decimal.NewFromInt(20),
		SellerID: 10,
		IsActive: true,
	}
	pb := models.Product{
		Title:         "discounted",
		Price:         decimal.NewFromInt(50),
		DiscountPrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(40), Valid: true},
		SellerID:      11,
		IsActive:      true,
	}
	require.NoError(t, db.Create(&pa).Error)
	require.NoError(t, db.Create(&pb).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: buyerID, ProductID: pa.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: buyerID, ProductID: pb.ID, Quantity: 1}).Error)
	return pa, pb
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := newTestDB(t)
	pay := &fakePayments{}
	orch, _ := newOrchestrator(db, pay)

	_, _, err := orch.Checkout(context.Background(), 1, &Shipping{Address: "1 Main St"})
	require.ErrorIs(t, err, ErrEmptyCart)
	require.Zero(t, pay.calls)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCheckoutSuccess(t *testing.T) {
	db := newTestDB(t)
	pay := &fakePayments{}
	orch, pub := newOrchestrator(db, pay)

	pa, pb := seedCart(t, db, 1)

	ord, items, err := orch.Checkout(context.Background(), 1, &Shipping{
		Address: "1 Main St",
		City:    "Springfield",
		Country: "US",
	})
	require.NoError(t, err)
	require.True(t, ord.TotalPrice.Equal(decimal.NewFromInt(80)), "got %s", ord.TotalPrice)
	require.Equal(t, models.OrderStatusPending, ord.Status)
	require.Equal(t, "pi_test_123", ord.PaymentID)
	require.Equal(t, "1 Main St", ord.ShippingAddress)

	require.Len(t, items, 2)
	require.Equal(t, pa.ID, items[0].ProductID)
	require.True(t, items[0].Price.Equal(decimal.NewFromInt(20)))
	require.Equal(t, uint(10), items[0].SellerID)
	require.Equal(t, pb.ID, items[1].ProductID)
	require.True(t, items[1].Price.Equal(decimal.NewFromInt(40)), "snapshot must use the discount price")
	require.Equal(t, uint(11), items[1].SellerID)

	require.Equal(t, int64(8000), pay.lastReq.AmountMinor)
	require.Equal(t, "usd", pay.lastReq.Currency)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error)
	require.Zero(t, cartCount, "cart must be cleared after a successful authorization")

	require.NotEmpty(t, pub.events)
}

func TestCheckoutSnapshotIsImmutable(t *testing.T) {
	db := newTestDB(t)
	pay := &fakePayments{}
	orch, _ := newOrchestrator(db, pay)

	pa, _ := seedCart(t, db, 1)

	ord, _, err := orch.Checkout(context.Background(), 1, &Shipping{Address: "1 Main St"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", pa.ID).
		Update("price", decimal.NewFromInt(999)).Error)

	var item models.OrderItem
	require.NoError(t, db.Where("order_id = ? AND product_id = ?", ord.ID, pa.ID).First(&item).Error)
	require.True(t, item.Price.Equal(decimal.NewFromInt(20)), "order item keeps the checkout-time price")

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, ord.ID).Error)
	require.True(t, reloaded.TotalPrice.Equal(decimal.NewFromInt(80)))
}

func TestCheckoutAuthorizationFailureRollsBack(t *testing.T) {
	db := newTestDB(t)
	pay := &fakePayments{err: errors.New("card declined")}
	orch, _ := newOrchestrator(db, pay)

	seedCart(t, db, 1)

	_, _, err := orch.Checkout(context.Background(), 1, &Shipping{Address: "1 Main St"})
	require.ErrorIs(t, err, ErrPaymentAuthorization)
	require.Equal(t, 1, pay.calls)

	var orderCount, itemCount, cartCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error)
	require.Zero(t, orderCount, "no order survives a failed authorization")
	require.Zero(t, itemCount)
	require.Equal(t, int64(2), cartCount, "cart stays intact so the buyer can retry")
}

func TestCheckoutCopiesProfileShipping(t *testing.T) {
	db := newTestDB(t)
	pay := &fakePayments{}
	orch, _ := newOrchestrator(db, pay)

	buyer := models.User{
		Username:     "buyer",
		PasswordHash: "hashed",
		Role:         "user",
		Address:      "42 Profile Rd",
		City:         "Portland",
		State:        "OR",
		Country:      "US",
		ZipCode:      "97201",
		PhoneNumber:  "+1 555 0100",
	}
	require.NoError(t, db.Create(&buyer).Error)
	seedCart(t, db, buyer.ID)

	ord, _, err := orch.Checkout(context.Background(), buyer.ID, nil)
	require.NoError(t, err)
	require.Equal(t, "42 Profile Rd", ord.ShippingAddress)
	require.Equal(t, "Portland", ord.ShippingCity)
	require.Equal(t, "OR", ord.ShippingState)
	require.Equal(t, "97201", ord.ShippingZipCode)
	require.Equal(t, "+1 555 0100", ord.ShippingPhone)
}
