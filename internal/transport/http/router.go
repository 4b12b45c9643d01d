package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/openmarket/marketplace/internal/handlers"
	"github.com/openmarket/marketplace/internal/handlers/auth"
	"github.com/openmarket/marketplace/internal/handlers/cart"
	"github.com/openmarket/marketplace/internal/handlers/location"
	"github.com/openmarket/marketplace/internal/handlers/order"
	"github.com/openmarket/marketplace/internal/middleware/csrf"
	"github.com/openmarket/marketplace/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *auth.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	WishlistHandler *handlers.WishlistHandler
	ProfileHandler  *handlers.ProfileHandler
	RatingHandler   *handlers.RatingHandler
	SearchHandler   *handlers.SearchHandler
	CartHandler     *cart.CartHandler
	OrderHandler    *order.OrderHandler
	LocationHandler *location.LocationHandler
	TokenService    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth rides on cookies, so mutating endpoints need CSRF protection.
	// Register and login are exempt: the browser has no token yet.
	v1 := e.Group("/api/v1", csrf.Middleware(csrf.Config{
		SkipPaths: []string{"/api/v1/register", "/api/v1/login"},
	}))

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, d.TokenService.AutoRefreshMiddleware)
	products.PATCH("/:id", d.ProductHandler.PatchProduct, d.TokenService.AutoRefreshMiddleware)
	products.POST("/:id/rating", d.RatingHandler.RateProduct, d.TokenService.AutoRefreshMiddleware)

	v1.GET("/categories", d.CategoryHandler.ListCategories)

	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)

	wishlist := v1.Group("/wishlist", d.TokenService.AutoRefreshMiddleware)
	wishlist.GET("", d.WishlistHandler.GetWishlist)
	wishlist.POST("/:id", d.WishlistHandler.AddToWishlist)
	wishlist.DELETE("/:id", d.WishlistHandler.RemoveFromWishlist)

	users := v1.Group("/users")
	users.GET("/:id", d.ProfileHandler.GetUser)
	users.POST("/:id/rating", d.RatingHandler.RateSeller, d.TokenService.AutoRefreshMiddleware)

	profile := v1.Group("/profile", d.TokenService.AutoRefreshMiddleware)
	profile.GET("", d.ProfileHandler.GetProfile)
	profile.PATCH("", d.ProfileHandler.UpdateProfile)

	cartGroup := v1.Group("/cart", d.TokenService.AutoRefreshMiddleware)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("", d.CartHandler.AddToCart)
	cartGroup.PATCH("/:id", d.CartHandler.UpdateQuantity)
	cartGroup.DELETE("/:id", d.CartHandler.RemoveFromCart)
	cartGroup.DELETE("", d.CartHandler.ClearCart)

	orders := v1.Group("/orders", d.TokenService.AutoRefreshMiddleware)
	orders.POST("", d.OrderHandler.MakeOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/payment/success", d.OrderHandler.PaymentSuccess)
	orders.POST("/:id/payment/cancel", d.OrderHandler.PaymentCancel)

	sales := v1.Group("/sales", d.TokenService.AutoRefreshMiddleware)
	sales.GET("", d.OrderHandler.ListSales)
	sales.GET("/:id", d.OrderHandler.SaleDetail)
	sales.PATCH("/:id/status", d.OrderHandler.UpdateStatus)

	stores := v1.Group("/stores")
	stores.GET("", d.LocationHandler.ListStores)
	stores.GET("/nearby", d.LocationHandler.Nearby)
	stores.POST("", d.LocationHandler.CreateStore, d.TokenService.AutoRefreshMiddleware)
	stores.PATCH("/:id", d.LocationHandler.UpdateStore, d.TokenService.AutoRefreshMiddleware)
	stores.DELETE("/:id", d.LocationHandler.DeleteStore, d.TokenService.AutoRefreshMiddleware)
}
