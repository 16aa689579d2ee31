package models

import "time"

// ProviderSearchResult is one supplier's response envelope. When Error is
// set the option list is empty; a provider never partially fails a call.
type ProviderSearchResult struct {
	Provider  string          `json:"provider"`
	SearchID  string          `json:"search_id"`
	Timestamp time.Time       `json:"timestamp"`
	Options   []BookingOption `json:"options"`
	Error     string          `json:"error,omitempty"`
}

type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

type FilterMetadata struct {
	PriceRange PriceRange   `json:"price_range"`
	Providers  []string     `json:"providers"`
	Types      []SearchType `json:"types"`
	Ratings    []float64    `json:"ratings,omitempty"`
}

type AggregatedSearchResult struct {
	ID              string                 `json:"id"`
	Timestamp       time.Time              `json:"timestamp"`
	TotalProviders  int                    `json:"total_providers"`
	TotalResults    int                    `json:"total_results"`
	Options         []BookingOption        `json:"options"`
	ProviderResults []ProviderSearchResult `json:"provider_results"`
	Metadata        FilterMetadata         `json:"metadata"`
}

type ProviderHealth struct {
	Type                SearchType `json:"type"`
	Healthy             bool       `json:"healthy"`
	BreakerState        string     `json:"breaker_state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
