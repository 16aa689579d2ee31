package providers

import (
	"context"
	"errors"

	"github.com/dharmasatrya/tripsearch/internal/models"
)

// Provider is the capability contract every supplier adapter implements.
// Adapters may call real supplier APIs or generate synthetic data; the core
// only requires that Search completes or fails within the caller's timeout.
type Provider interface {
	Name() string
	Type() models.SearchType
	Search(ctx context.Context, req models.SearchRequest) (*models.ProviderSearchResult, error)
	GetDetails(ctx context.Context, bookingID string) (*models.BookingDetails, error)
}

// Booker is the optional direct-booking extension. Callers probe for it
// with a type assertion instead of calling a method that may not exist.
type Booker interface {
	Book(ctx context.Context, option models.BookingOption) (*models.BookingConfirmation, error)
}

var ErrBookingNotFound = errors.New("booking not found")

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}
