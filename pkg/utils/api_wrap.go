package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	respond(c, http.StatusOK, data, message)
}

func RespondCreated(c *gin.Context, data interface{}, message string) {
	respond(c, http.StatusCreated, data, message)
}

func respond(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, APIResponse{
		Status:  "success",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// HandleServiceError maps the payment error taxonomy onto HTTP responses.
// Provider and persistence failures deliberately collapse into a generic
// retry message so gateway internals never leak to callers.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrRefundNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateReference):
		RespondError(c, http.StatusConflict, "reference number already in use")
	case errors.Is(err, ErrRefundNotAllowed):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownProvider):
		RespondError(c, http.StatusBadRequest, "unknown payment provider")
	case errors.Is(err, ErrProviderRejected):
		RespondError(c, http.StatusBadGateway, "payment was rejected by the provider")
	case errors.Is(err, ErrProviderUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "payment provider is unavailable, please try again")
	case errors.Is(err, ErrPersistence):
		RespondError(c, http.StatusInternalServerError, "payment could not be recorded, please contact support")
	default:
		log.Printf("Unknown error: %v", err)
		RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
