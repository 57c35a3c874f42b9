package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidPhone      = errors.New("phone number is not a valid msisdn")
	ErrUpstreamAuth      = errors.New("gateway credential exchange rejected")
	ErrGatewayRejected   = errors.New("gateway rejected push request")
	ErrAlreadyTerminal   = errors.New("transaction already in terminal state")
	ErrMalformedCallback = errors.New("malformed callback envelope")
)
