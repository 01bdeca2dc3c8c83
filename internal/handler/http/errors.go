package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/AlwanWZ/shophub/internal/domain"
	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

// cartError maps engine error kinds to API errors. Other errors pass through.
func cartError(err error) error {
	var ce *domain.CartError
	if !errors.As(err, &ce) {
		return err
	}

	switch {
	case errors.Is(ce, domain.ErrUnknownProduct):
		return &apperrors.AppError{
			Code:    "UNKNOWN_PRODUCT",
			Message: fmt.Sprintf("product %d is not available in this session", ce.ProductID),
			Status:  http.StatusNotFound,
			Err:     ce,
		}
	case errors.Is(ce, domain.ErrStockExceeded):
		return &apperrors.AppError{
			Code:    "STOCK_EXCEEDED",
			Message: fmt.Sprintf("Cannot add more! Only %d available in stock.", ce.Quota),
			Status:  http.StatusConflict,
			Err:     ce,
		}
	default:
		return &apperrors.AppError{
			Code:    "INVALID_QUANTITY",
			Message: ce.Error(),
			Status:  http.StatusBadRequest,
			Err:     ce,
		}
	}
}

// notices renders SetQuantity clamping notices.
func notices(in []*domain.CartError) []Notice {
	out := make([]Notice, 0, len(in))
	for _, n := range in {
		switch {
		case errors.Is(n, domain.ErrBelowMinimum):
			out = append(out, Notice{Code: "BELOW_MINIMUM", Message: "Minimum quantity is 1"})
		case errors.Is(n, domain.ErrStockExceeded):
			out = append(out, Notice{Code: "STOCK_EXCEEDED", Message: fmt.Sprintf("Maximum available is %d", n.Quota)})
		}
	}
	return out
}
