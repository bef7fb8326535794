package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/market"
	"coin-ledger-go/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultTimeout      = 30 * time.Second
	ShutdownTimeout     = 10 * time.Second
	ServiceName         = "coin-ledger"
	ServiceVersion      = "1.0.0"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	UserIDHeaderKey     = "X-User-Id"
)

// Ledger is the user-facing ledger API served under /me
type Ledger interface {
	Register(ctx context.Context, params api.RegisterParams) (*models.ProfileView, error)
	GetProfile(ctx context.Context, userId string) (*models.ProfileView, error)
	UpdateProfile(ctx context.Context, userId string, params api.ProfileParams) (*models.ProfileView, error)
	GetDashboard(ctx context.Context, userId string) (*models.Dashboard, error)
	GetPortfolio(ctx context.Context, userId, currency string) (*models.PortfolioView, error)
	Buy(ctx context.Context, userId string, params api.TradeParams) (*models.TradeResult, error)
	Sell(ctx context.Context, userId string, params api.TradeParams) (*models.TradeResult, error)
	Deposit(ctx context.Context, userId, amount string) (*models.FundsResult, error)
	Withdraw(ctx context.Context, userId, amount string) (*models.FundsResult, error)
	HealthCheck(ctx context.Context) error
}

// Market serves the public coin table and charts
type Market interface {
	Coins(ctx context.Context, currency string) ([]models.Coin, error)
	Candles(ctx context.Context, symbol, currency, interval string) ([]models.Candle, market.Interval, error)
}

// Handler handles HTTP requests using Gin framework
type Handler struct {
	ledger Ledger
	market Market
	cfg    models.ServerConfig
}

func NewHandler(ledger Ledger, market Market, cfg models.ServerConfig) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeout
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	return &Handler{
		ledger: ledger,
		market: market,
		cfg:    cfg,
	}
}

// SetupRoutes configures all API routes
func (h *Handler) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(zapLoggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.cfg.AllowedOrigin))
	router.Use(timeoutMiddleware(h.cfg.RequestTimeout))

	router.GET("/health", h.HealthCheck)
	router.GET("/coins", h.GetCoins)
	router.GET("/candles", h.GetCandles)
	router.POST("/users", h.Register)

	me := router.Group("/me", identityMiddleware())
	me.GET("", h.GetMe)
	me.PATCH("", h.UpdateProfile)
	me.GET("/portfolio", h.GetPortfolio)
	me.POST("/buy", h.Buy)
	me.POST("/sell", h.Sell)
	me.POST("/deposit", h.Deposit)
	me.POST("/withdraw", h.Withdraw)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (h *Handler) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              h.cfg.Addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", h.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
