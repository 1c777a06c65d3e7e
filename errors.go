package main

import "errors"

// Sentinel errors shared across the evaluation and accrual paths. Handlers
// map these to HTTP statuses; anything else is a persistence failure and is
// surfaced as a generic 500.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrQuestionNotFound       = errors.New("question not found")
	ErrValidation             = errors.New("missing or invalid input")
	ErrItemNotFound           = errors.New("store item not found")
	ErrInsufficientCurrency   = errors.New("insufficient currency")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)
