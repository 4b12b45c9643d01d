package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/openmarket/marketplace/internal/config"
	"github.com/openmarket/marketplace/internal/es"
	"github.com/openmarket/marketplace/internal/handlers"
	"github.com/openmarket/marketplace/internal/handlers/auth"
	carthandlers "github.com/openmarket/marketplace/internal/handlers/cart"
	"github.com/openmarket/marketplace/internal/handlers/location"
	orderhandlers "github.com/openmarket/marketplace/internal/handlers/order"
	"github.com/openmarket/marketplace/internal/logging"
	"github.com/openmarket/marketplace/internal/mykafka"
	"github.com/openmarket/marketplace/internal/payment"
	cartsvc "github.com/openmarket/marketplace/internal/service/cart"
	"github.com/openmarket/marketplace/internal/service/checkout"
	ordersvc "github.com/openmarket/marketplace/internal/service/order"
	"github.com/openmarket/marketplace/internal/service/token"
	httpserver "github.com/openmarket/marketplace/internal/transport/http"
)

func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(configuration.REFRESH_SECRET, "REFRESH_SECRET")
	config.MustNonEmpty(configuration.PAYMENT_API_KEY, "PAYMENT_API_KEY")

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	payments := payment.NewHTTPClient(payment.Config{
		BaseURL:  configuration.PAYMENT_API_URL,
		APIKey:   configuration.PAYMENT_API_KEY,
		Currency: configuration.PAYMENT_CURRENCY,
	})

	cartService := &cartsvc.Service{DB: db}
	orchestrator := &checkout.Orchestrator{
		DB:       db,
		Payments: payments,
		Producer: prod,
		Currency: configuration.PAYMENT_CURRENCY,
	}
	orderService := &ordersvc.Service{DB: db, Producer: prod}
	tokenService := &token.TokenService{DB: db, RefreshSecret: refreshSecret, JWTSecret: jwtSecret}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		DB:              db,
		AuthHandler:     &auth.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod, ES: esClient, Index: "product"},
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		WishlistHandler: &handlers.WishlistHandler{DB: db},
		ProfileHandler:  &handlers.ProfileHandler{DB: db},
		RatingHandler:   &handlers.RatingHandler{DB: db},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "product"},
		CartHandler:     &carthandlers.CartHandler{Cart: cartService, Producer: prod},
		OrderHandler:    &orderhandlers.OrderHandler{Checkout: orchestrator, Orders: orderService},
		LocationHandler: &location.LocationHandler{DB: db},
		TokenService:    tokenService,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
