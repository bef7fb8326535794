package server

import (
	"context"
	"errors"
	"net/http"

	"coin-ledger-go/internal/market"
	"coin-ledger-go/internal/store"

	"github.com/gin-gonic/gin"
)

// statusOf maps service errors to HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidParameters),
		errors.Is(err, market.ErrUnknownInterval),
		errors.Is(err, market.ErrUnknownSymbol),
		errors.Is(err, market.ErrUnknownCoin):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, market.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(c *gin.Context, message string) gin.H {
	return gin.H{
		"error":      message,
		"request_id": c.GetString(RequestIDContextKey),
	}
}

// handleError records err on the context and sends the mapped status. Details
// of internal errors are not exposed.
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.AbortWithStatusJSON(status, errorBody(c, message))
}
