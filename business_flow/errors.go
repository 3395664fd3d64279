// Package businessflow contains the core business logic and use cases for raffle workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Raffle-related errors
	ErrRaffleNotFound         = errors.New("raffle not found")
	ErrRaffleNotOpen          = errors.New("raffle is not open for reservations")
	ErrRaffleEnded            = errors.New("raffle has ended")
	ErrRaffleTitleRequired    = errors.New("raffle title is required")
	ErrTotalNumbersTooSmall   = errors.New("total numbers must be at least 100")
	ErrPriceRequired          = errors.New("price must be greater than zero")
	ErrEndDateInPast          = errors.New("end date cannot be in the past")
	ErrInvalidRaffleStatus    = errors.New("invalid raffle status")
	ErrWinningReceiptRequired = errors.New("a paid winning receipt is required to close the raffle")
	ErrWinningReceiptNotPaid  = errors.New("winning receipt is not paid")
	ErrRaffleHasReceipts      = errors.New("raffle with receipts cannot be deleted")

	// Reservation-related errors
	ErrNumbersRequired         = errors.New("at least one number is required")
	ErrTooManyNumbers          = errors.New("too many numbers in one reservation")
	ErrInvalidNumber           = errors.New("number is out of range for this raffle")
	ErrInvalidPageNumber       = errors.New("page number does not match the number")
	ErrDuplicateNumbersInBatch = errors.New("duplicate numbers in reservation")
	ErrContactRequired         = errors.New("buyer name and at least one contact channel are required")

	// Receipt-related errors
	ErrReceiptNotFound           = errors.New("receipt not found")
	ErrReceiptIDTaken            = errors.New("requested receipt ID is already in use")
	ErrReceiptExpired            = errors.New("receipt has expired")
	ErrInvalidStatusTransition   = errors.New("invalid receipt status transition")
	ErrProofFileRequired         = errors.New("proof file is required")
	ErrProofFileTooLarge         = errors.New("proof file is too large")
	ErrRelayUnavailable          = errors.New("proof relay is unavailable")
	ErrReceiptIDGenerationFailed = errors.New("could not generate a unique receipt ID")

	// Admin-related errors
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminInactive      = errors.New("admin account is inactive")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminAlreadyExists = errors.New("an admin account already exists")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

// NumberConflictError reports the first already-claimed pair found when a
// reservation loses the race for a number.
type NumberConflictError struct {
	Number     int
	PageNumber int
}

func (e *NumberConflictError) Error() string {
	return fmt.Sprintf("number %d on page %d is already claimed", e.Number, e.PageNumber)
}

func AsNumberConflict(err error) (*NumberConflictError, bool) {
	var conflict *NumberConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsRaffleNotFound(err error) bool {
	return errors.Is(err, ErrRaffleNotFound)
}

func IsRaffleTitleRequired(err error) bool {
	return errors.Is(err, ErrRaffleTitleRequired)
}

func IsTotalNumbersTooSmall(err error) bool {
	return errors.Is(err, ErrTotalNumbersTooSmall)
}

func IsPriceRequired(err error) bool {
	return errors.Is(err, ErrPriceRequired)
}

func IsEndDateInPast(err error) bool {
	return errors.Is(err, ErrEndDateInPast)
}

func IsInvalidRaffleStatus(err error) bool {
	return errors.Is(err, ErrInvalidRaffleStatus)
}

func IsTooManyNumbers(err error) bool {
	return errors.Is(err, ErrTooManyNumbers)
}

func IsReceiptIDTaken(err error) bool {
	return errors.Is(err, ErrReceiptIDTaken)
}

func IsRaffleNotOpen(err error) bool {
	return errors.Is(err, ErrRaffleNotOpen)
}

func IsRaffleEnded(err error) bool {
	return errors.Is(err, ErrRaffleEnded)
}

func IsWinningReceiptRequired(err error) bool {
	return errors.Is(err, ErrWinningReceiptRequired)
}

func IsWinningReceiptNotPaid(err error) bool {
	return errors.Is(err, ErrWinningReceiptNotPaid)
}

func IsRaffleHasReceipts(err error) bool {
	return errors.Is(err, ErrRaffleHasReceipts)
}

func IsNumbersRequired(err error) bool {
	return errors.Is(err, ErrNumbersRequired)
}

func IsInvalidNumber(err error) bool {
	return errors.Is(err, ErrInvalidNumber)
}

func IsInvalidPageNumber(err error) bool {
	return errors.Is(err, ErrInvalidPageNumber)
}

func IsDuplicateNumbersInBatch(err error) bool {
	return errors.Is(err, ErrDuplicateNumbersInBatch)
}

func IsContactRequired(err error) bool {
	return errors.Is(err, ErrContactRequired)
}

func IsReceiptNotFound(err error) bool {
	return errors.Is(err, ErrReceiptNotFound)
}

func IsReceiptExpired(err error) bool {
	return errors.Is(err, ErrReceiptExpired)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsProofFileRequired(err error) bool {
	return errors.Is(err, ErrProofFileRequired)
}

func IsProofFileTooLarge(err error) bool {
	return errors.Is(err, ErrProofFileTooLarge)
}

func IsRelayUnavailable(err error) bool {
	return errors.Is(err, ErrRelayUnavailable)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAdminAlreadyExists(err error) bool {
	return errors.Is(err, ErrAdminAlreadyExists)
}

func IsUsernameRequired(err error) bool {
	return errors.Is(err, ErrUsernameRequired)
}

func IsPasswordTooShort(err error) bool {
	return errors.Is(err, ErrPasswordTooShort)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
