package domain

import "errors"

var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrMalformedEvent     = errors.New("malformed event payload")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrItemsRequired      = errors.New("at least one line item is required")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentConflict    = errors.New("order already settled by a different payment")
	ErrDuplicateOrder     = errors.New("order already exists for gateway reference")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidID          = errors.New("invalid id")
)
