package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Wallet errors
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrWalletNotFound      ErrorCode = "WALLET_NOT_FOUND"
	ErrInvalidAmount       ErrorCode = "INVALID_AMOUNT"

	// Identity errors
	ErrNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"

	// Reward errors
	ErrDuplicateReward  ErrorCode = "DUPLICATE_REWARD"
	ErrRetryNotAllowed  ErrorCode = "RETRY_NOT_ALLOWED"
	ErrQuizNotFound     ErrorCode = "QUIZ_NOT_FOUND"

	// Store errors
	ErrItemNotFound     ErrorCode = "ITEM_NOT_FOUND"
	ErrAlreadyPurchased ErrorCode = "ALREADY_PURCHASED"

	// Party errors
	ErrPartyNotFound ErrorCode = "PARTY_NOT_FOUND"
	ErrPartyInactive ErrorCode = "PARTY_INACTIVE"
	ErrAlreadyJoined ErrorCode = "ALREADY_JOINED"
	ErrNotPartyHost  ErrorCode = "NOT_PARTY_HOST"
	ErrNotInParty    ErrorCode = "NOT_IN_PARTY"

	// Request errors
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrNotFound        ErrorCode = "NOT_FOUND"

	// System errors
	ErrOracleFailure ErrorCode = "ORACLE_FAILURE"
	ErrStorageError  ErrorCode = "STORAGE_ERROR"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// TheaterError is an error surfaced to theater users as a transient notification
type TheaterError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *TheaterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TheaterError) Unwrap() error {
	return e.Err
}

// NewTheaterError creates a new TheaterError
func NewTheaterError(code ErrorCode, message string) *TheaterError {
	return &TheaterError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a TheaterError
func WrapError(code ErrorCode, message string, err error) *TheaterError {
	return &TheaterError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsTheaterError checks if an error is a TheaterError and has a specific code
func IsTheaterError(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var theaterErr *TheaterError
	if !As(err, &theaterErr) {
		return false
	}
	return theaterErr.Code == code
}

// CodeOf returns the code of the first TheaterError in err's chain, or ErrInternalError
func CodeOf(err error) ErrorCode {
	var theaterErr *TheaterError
	if As(err, &theaterErr) {
		return theaterErr.Code
	}
	return ErrInternalError
}

// As finds the first TheaterError in err's chain
func As(err error, target **TheaterError) bool {
	if target == nil || err == nil {
		return false
	}
	return errors.As(err, target)
}
