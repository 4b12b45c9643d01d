package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string  `gorm:"unique;not null"          json:"username"`
	PasswordHash string  `gorm:"not null"                 json:"-"`
	Role         string  `gorm:"not null"                 json:"role"`
	Bio          string  `json:"bio"`
	PhoneNumber  string  `json:"phone_number"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Country      string  `json:"country"`
	ZipCode      string  `json:"zip_code"`
	Latitude     float64 `gorm:"default:0"                json:"latitude"`
	Longitude    float64 `gorm:"default:0"                json:"longitude"`
	IsSeller     bool    `gorm:"default:false"            json:"is_seller"`
	SellerRating float64 `gorm:"default:0"                json:"seller_rating"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `gorm:"not null"            json:"role"`
	JTI       string `gorm:"index"               json:"jti"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Category struct {
	ID          uint   `gorm:"primaryKey"     json:"id"`
	Name        string `gorm:"not null"       json:"name"`
	Description string `json:"description"`
	ParentID    *uint  `gorm:"index"          json:"parent_id,omitempty"`
}

type Product struct {
	ID            uint                `gorm:"primaryKey;autoIncrement"    json:"id"`
	Title         string              `gorm:"not null"                    json:"title"`
	Description   string              `gorm:"not null"                    json:"description"`
	Price         decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(10,2)"          json:"discount_price"`
	CategoryID    uint                `gorm:"index"                       json:"category_id"`
	SellerID      uint                `gorm:"index;not null"              json:"seller_id"`
	Condition     string              `json:"condition"`
	Brand         string              `json:"brand"`
	Quantity      uint                `gorm:"default:1"                   json:"quantity"`
	IsActive      bool                `gorm:"default:true"                json:"is_active"`
	IsFeatured    bool                `gorm:"default:false"               json:"is_featured"`
	Latitude      float64             `gorm:"default:0"                   json:"latitude"`
	Longitude     float64             `gorm:"default:0"                   json:"longitude"`
	Views         uint                `gorm:"default:0"                   json:"views"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// EffectivePrice is the price a buyer actually pays: the discount price
// when one is set, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

type ProductRating struct {
	ID        uint      `gorm:"primaryKey"                             json:"id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_product_rater" json:"product_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_product_rater" json:"user_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"  json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}

type UserRating struct {
	ID        uint      `gorm:"primaryKey"                             json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_rater"    json:"user_id"`
	RatedByID uint      `gorm:"not null;uniqueIndex:idx_user_rater"    json:"rated_by_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"  json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}

// WishlistItem is one saved product. The (user, product) pair is unique
// so the wishlist behaves as a set.
type WishlistItem struct {
	ID        uint      `gorm:"primaryKey"                             json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wishlist_line" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_wishlist_line" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                         json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_line" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"         json:"quantity"`
}

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// ValidOrderStatus reports whether s is one of the enumerated order states.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusRefunded:
		return true
	}
	return false
}

// TerminalOrderStatus reports whether no further transitions are allowed from s.
func TerminalOrderStatus(s string) bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID              uint            `gorm:"primaryKey"                  json:"id"`
	BuyerID         uint            `gorm:"index;not null"              json:"buyer_id"`
	ShippingAddress string          `gorm:"not null"                    json:"shipping_address"`
	ShippingCity    string          `json:"shipping_city"`
	ShippingState   string          `json:"shipping_state"`
	ShippingCountry string          `json:"shipping_country"`
	ShippingZipCode string          `json:"shipping_zip_code"`
	ShippingPhone   string          `json:"shipping_phone"`
	Status          string          `gorm:"not null;default:pending"    json:"status"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	PaymentID       string          `json:"payment_id"`
	PaymentStatus   string          `json:"payment_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"order_id"`
	ProductID uint            `gorm:"not null"                    json:"product_id"`
	SellerID  uint            `gorm:"index;not null"              json:"seller_id"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Quantity  uint            `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

// LineTotal is the snapshotted unit price times quantity.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

type Transaction struct {
	ID            uint            `gorm:"primaryKey"                  json:"id"`
	OrderID       uint            `gorm:"index;not null"              json:"order_id"`
	SellerID      uint            `gorm:"index;not null"              json:"seller_id"`
	BuyerID       uint            `gorm:"index;not null"              json:"buyer_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Status        string          `gorm:"not null;default:pending"    json:"status"`
	PaymentID     string          `json:"payment_id"`
	TransactionID string          `gorm:"unique;not null"             json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

type StoreLocation struct {
	ID            uint      `gorm:"primaryKey"       json:"id"`
	Name          string    `gorm:"not null"         json:"name"`
	SellerID      uint      `gorm:"index;not null"   json:"seller_id"`
	Address       string    `gorm:"not null"         json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Country       string    `json:"country"`
	ZipCode       string    `json:"zip_code"`
	Latitude      float64   `gorm:"not null"         json:"latitude"`
	Longitude     float64   `gorm:"not null"         json:"longitude"`
	PhoneNumber   string    `json:"phone_number"`
	BusinessHours string    `json:"business_hours"`
	IsActive      bool      `gorm:"default:true"     json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
