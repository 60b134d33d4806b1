package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPositionClosed    = errors.New("position already closed")
	ErrExecutionFailed   = errors.New("execution failed")
	ErrUnknownVenue      = errors.New("unknown venue")
)
