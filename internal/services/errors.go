// internal/services/errors.go
package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyCheckout      = errors.New("checkout has no items")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrBundleNotFound     = errors.New("bundle not found")
	ErrBundleNotAvailable = errors.New("bundle not available for sale")
	ErrProductNotFound    = errors.New("component product not found")
	ErrAddressNotFound    = errors.New("address not found")
	ErrPaymentNotFound    = errors.New("payment method not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderItemNotFound  = errors.New("order item not found")
	ErrOrderNotDelivered  = errors.New("order has not been delivered")
	ErrAlreadyRated       = errors.New("already rated")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// IsRetryableError reports whether an error is transient database contention
// (deadlock or lock timeout) that the caller may retry.
func IsRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01": // deadlock_detected
			return true
		case "55P03": // lock_not_available
			return true
		case "40001": // serialization_failure
			return true
		}
	}
	return false
}
