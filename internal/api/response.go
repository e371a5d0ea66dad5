package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"capitoro/internal/domain"
	"capitoro/internal/investment"
	"capitoro/internal/storage"
	"capitoro/internal/wallet"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
	})
}

// statuses is ordered: an error wrapping several kinds gets the first match.
var statuses = []struct {
	err    error
	status int
}{
	{investment.ErrFlowNotIdle, http.StatusConflict},
	{wallet.ErrNotInstalled, http.StatusPreconditionFailed},
	{wallet.ErrNotConnected, http.StatusPreconditionFailed},
	{domain.ErrUserRejected, http.StatusForbidden},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{domain.ErrInvalidAddress, http.StatusBadRequest},
	{storage.ErrInvalidInput, http.StatusBadRequest},
	{storage.ErrNotFound, http.StatusNotFound},
	{storage.ErrDuplicateKey, http.StatusConflict},
	{domain.ErrConfirmation, http.StatusGatewayTimeout},
	{domain.ErrPersistence, http.StatusInternalServerError},
	{domain.ErrNetwork, http.StatusBadGateway},
	{domain.ErrSubmission, http.StatusBadGateway},
	{domain.ErrSigning, http.StatusBadGateway},
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// messageFor returns the client-facing message for err. Errors outside the
// known kinds are not echoed.
func messageFor(err error) string {
	if domain.Kind(err) != domain.KindUnknown {
		return domain.UserMessage(err)
	}
	switch {
	case errors.Is(err, investment.ErrFlowNotIdle),
		errors.Is(err, wallet.ErrNotInstalled),
		errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrInvalidInput):
		return err.Error()
	}
	return "internal server error"
}

// fail writes the error response for err.
func (s *Server) fail(c *gin.Context, err error) {
	s.logFailure(c, err)
	errorResponse(c, statusFor(err), messageFor(err))
}

// logFailure logs server-side and upstream failures. Client errors are not logged.
func (s *Server) logFailure(c *gin.Context, err error) {
	if statusFor(err) < http.StatusInternalServerError {
		return
	}
	s.log.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("kind", domain.Kind(err)),
		zap.Error(err),
	)
}
