package domain

import (
	"errors"
	"fmt"
)

// Cart error kinds. All of them are recoverable: the engine reports them to
// the caller and never treats them as fatal.
var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrStockExceeded  = errors.New("stock exceeded")
	ErrBelowMinimum   = errors.New("below minimum quantity")
)

// CartError annotates a cart operation result with the product and stock quota
// involved. Use errors.Is against the kind sentinels to branch on it.
type CartError struct {
	Kind      error
	ProductID int
	Quota     int
}

func (e *CartError) Error() string {
	switch e.Kind {
	case ErrStockExceeded:
		return fmt.Sprintf("product %d: %v (quota %d)", e.ProductID, e.Kind, e.Quota)
	default:
		return fmt.Sprintf("product %d: %v", e.ProductID, e.Kind)
	}
}

func (e *CartError) Unwrap() error {
	return e.Kind
}

// UnknownProduct creates an ErrUnknownProduct annotation.
func UnknownProduct(productID int) *CartError {
	return &CartError{Kind: ErrUnknownProduct, ProductID: productID}
}

// StockExceeded creates an ErrStockExceeded annotation carrying the quota.
func StockExceeded(productID, quota int) *CartError {
	return &CartError{Kind: ErrStockExceeded, ProductID: productID, Quota: quota}
}

// BelowMinimum creates an ErrBelowMinimum annotation.
func BelowMinimum(productID, quota int) *CartError {
	return &CartError{Kind: ErrBelowMinimum, ProductID: productID, Quota: quota}
}
