package services

import (
	"errors"
	"fmt"

	"podoMarketAPI/internal/payple"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNotActive = errors.New("subscription is not active")
	ErrForbidden = errors.New("caller does not own this resource")
)

// ProviderError is a business rejection from the payment gateway. The
// raw payload rides along so handlers can attach it to 5xx bodies.
type ProviderError struct {
	Result payple.Result
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gateway rejected: code=%s msg=%s", e.Result.Code, e.Result.Message)
}
