package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coin-ledger-go/internal/api"
	"coin-ledger-go/internal/models"

	"github.com/gin-gonic/gin"
)

// amountField accepts an amount as a JSON string ("12.5") or number (12.5).
// The text is kept as entered so the ledger parses it exactly.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or a numeric string")
	}
	*a = amountField(n.String())
	return nil
}

type tradeRequest struct {
	CoinId   string      `json:"coin_id"`
	Quantity amountField `json:"quantity"`
	Price    amountField `json:"price"`
	Symbol   string      `json:"symbol"`
	Name     string      `json:"name"`
}

type fundsRequest struct {
	Amount amountField `json:"amount"`
}

type meResponse struct {
	Profile   *models.ProfileView `json:"profile"`
	Dashboard *models.Dashboard   `json:"dashboard"`
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(c *gin.Context) {
	status, code := "OK", http.StatusOK
	if err := h.ledger.HealthCheck(c.Request.Context()); err != nil {
		_ = c.Error(err)
		status, code = "UNAVAILABLE", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   ServiceVersion,
	})
}

// GetCoins handles GET /coins requests
func (h *Handler) GetCoins(c *gin.Context) {
	coins, err := h.market.Coins(c.Request.Context(), c.Query("currency"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

// GetCandles handles GET /candles requests
func (h *Handler) GetCandles(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, "symbol is required"))
		return
	}

	candles, interval, err := h.market.Candles(c.Request.Context(), symbol, c.Query("currency"), c.Query("interval"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"interval": interval.Label,
		"candles":  candles,
	})
}

// Register handles POST /users requests
func (h *Handler) Register(c *gin.Context) {
	var params api.RegisterParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, "invalid request body"))
		return
	}

	profile, err := h.ledger.Register(c.Request.Context(), params)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// GetMe handles GET /me requests
func (h *Handler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	userId := models.UserIdFromContext(ctx)

	profile, err := h.ledger.GetProfile(ctx, userId)
	if err != nil {
		handleError(c, err)
		return
	}
	dashboard, err := h.ledger.GetDashboard(ctx, userId)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, meResponse{Profile: profile, Dashboard: dashboard})
}

// UpdateProfile handles PATCH /me requests
func (h *Handler) UpdateProfile(c *gin.Context) {
	var params api.ProfileParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, "invalid request body"))
		return
	}

	ctx := c.Request.Context()
	profile, err := h.ledger.UpdateProfile(ctx, models.UserIdFromContext(ctx), params)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetPortfolio handles GET /me/portfolio requests
func (h *Handler) GetPortfolio(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.ledger.GetPortfolio(ctx, models.UserIdFromContext(ctx), c.Query("currency"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Buy handles POST /me/buy requests
func (h *Handler) Buy(c *gin.Context) {
	h.trade(c, h.ledger.Buy)
}

// Sell handles POST /me/sell requests
func (h *Handler) Sell(c *gin.Context) {
	h.trade(c, h.ledger.Sell)
}

type tradeFunc func(ctx context.Context, userId string, params api.TradeParams) (*models.TradeResult, error)

func (h *Handler) trade(c *gin.Context, execute tradeFunc) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, "invalid request body"))
		return
	}

	ctx := c.Request.Context()
	result, err := execute(ctx, models.UserIdFromContext(ctx), api.TradeParams{
		CoinId:   req.CoinId,
		Quantity: string(req.Quantity),
		Price:    string(req.Price),
		Symbol:   req.Symbol,
		Name:     req.Name,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Deposit handles POST /me/deposit requests
func (h *Handler) Deposit(c *gin.Context) {
	h.funds(c, h.ledger.Deposit)
}

// Withdraw handles POST /me/withdraw requests
func (h *Handler) Withdraw(c *gin.Context) {
	h.funds(c, h.ledger.Withdraw)
}

type fundsFunc func(ctx context.Context, userId, amount string) (*models.FundsResult, error)

func (h *Handler) funds(c *gin.Context, execute fundsFunc) {
	var req fundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, "invalid request body"))
		return
	}

	ctx := c.Request.Context()
	result, err := execute(ctx, models.UserIdFromContext(ctx), string(req.Amount))
	if err != nil {
		handleError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
