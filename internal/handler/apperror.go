package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidPhone     = &AppError{http.StatusBadRequest, "INVALID_PHONE", "Phone number is not a valid Kenyan msisdn"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrUpstreamAuth     = &AppError{http.StatusBadGateway, "UPSTREAM_AUTH_FAILED", "Payment gateway rejected our credentials"}
	ErrGatewayRejected  = &AppError{http.StatusBadGateway, "GATEWAY_REJECTED", "Payment gateway declined the push request"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
)
