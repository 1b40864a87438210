package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-service/internal/auctionerrors"
	"auction-service/utils"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the authentication layer in front of this service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// CallerIdentity extracts the authenticated caller from request headers.
// Authentication itself happens upstream; these headers are trusted input.
func CallerIdentity(c *gin.Context) (userID string, isAdmin bool) {
	return c.GetHeader(HeaderUserID), c.GetHeader(HeaderUserRole) == "admin"
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrOwnerBid):
		return http.StatusForbidden, "auction owner cannot bid on own auction"
	case errors.Is(err, auctionerrors.ErrNotAuthorized):
		return http.StatusForbidden, "not authorized"
	case errors.Is(err, auctionerrors.ErrBiddingClosed):
		return http.StatusConflict, "bidding closed"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not accepting bids"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrDuplicateBid):
		return http.StatusConflict, "duplicate bid detected"
	case errors.Is(err, auctionerrors.ErrAlreadyClosed):
		return http.StatusConflict, "auction already closed"
	case errors.Is(err, auctionerrors.ErrNotEnded):
		return http.StatusConflict, "auction has not ended yet"
	case errors.Is(err, auctionerrors.ErrVersionConflict):
		return http.StatusConflict, "auction was modified concurrently"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
