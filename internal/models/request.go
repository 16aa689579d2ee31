package models

import "strings"

type SearchType string

const (
	SearchTypeFlight   SearchType = "flight"
	SearchTypeHotel    SearchType = "hotel"
	SearchTypeActivity SearchType = "activity"
)

const (
	StopsDirect    = "direct"
	StopsOneStop   = "1-stop"
	StopsMultiStop = "multi-stop"
)

type SearchFilters struct {
	Providers []string `json:"providers,omitempty"`
	PriceMin  *float64 `json:"price_min,omitempty"`
	PriceMax  *float64 `json:"price_max,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	Amenities []string `json:"amenities,omitempty"`
	Airlines  []string `json:"airlines,omitempty"`
	Stops     *string  `json:"stops,omitempty"`
	SortBy    string   `json:"sort_by,omitempty"`
	SortOrder string   `json:"sort_order,omitempty"`
}

type SearchRequest struct {
	Type          SearchType     `json:"type" validate:"required,oneof=flight hotel activity"`
	Origin        string         `json:"origin,omitempty"`
	Destination   string         `json:"destination,omitempty"`
	DepartureDate string         `json:"departure_date,omitempty"`
	ReturnDate    *string        `json:"return_date,omitempty"`
	CabinClass    string         `json:"cabin_class,omitempty"`
	Location      string         `json:"location,omitempty"`
	CheckIn       string         `json:"check_in,omitempty"`
	CheckOut      string         `json:"check_out,omitempty"`
	Date          string         `json:"date,omitempty"`
	Passengers    int            `json:"passengers,omitempty"`
	Guests        int            `json:"guests,omitempty"`
	Rooms         int            `json:"rooms,omitempty"`
	BudgetMin     *float64       `json:"budget_min,omitempty"`
	BudgetMax     *float64       `json:"budget_max,omitempty"`
	Filters       *SearchFilters `json:"filters,omitempty"`
}

// Validate checks the fields required for the request's search type and
// fills defaults for the optional ones. The zero type is rejected.
func (r *SearchRequest) Validate() error {
	switch r.Type {
	case SearchTypeFlight:
		if r.Origin == "" {
			return ErrMissingOrigin
		}
		if r.Destination == "" {
			return ErrMissingDestination
		}
		if r.DepartureDate == "" {
			return ErrMissingDepartureDate
		}
		if r.Passengers <= 0 {
			r.Passengers = 1
		}
		if r.CabinClass == "" {
			r.CabinClass = "economy"
		}
	case SearchTypeHotel:
		if r.Location == "" {
			return ErrMissingLocation
		}
		if r.CheckIn == "" {
			return ErrMissingCheckIn
		}
		if r.CheckOut == "" {
			return ErrMissingCheckOut
		}
		if r.Guests <= 0 {
			r.Guests = 1
		}
		if r.Rooms <= 0 {
			r.Rooms = 1
		}
	case SearchTypeActivity:
		if r.Location == "" {
			return ErrMissingLocation
		}
		if r.Date == "" {
			return ErrMissingDate
		}
		if r.Guests <= 0 {
			r.Guests = 1
		}
	default:
		return ErrUnknownSearchType
	}

	if r.Filters != nil {
		if r.Filters.SortOrder == "" {
			r.Filters.SortOrder = "asc"
		} else {
			r.Filters.SortOrder = strings.ToLower(r.Filters.SortOrder)
		}
	}

	return nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin        ValidationError = "origin is required for flight search"
	ErrMissingDestination   ValidationError = "destination is required for flight search"
	ErrMissingDepartureDate ValidationError = "departure_date is required for flight search"
	ErrMissingLocation      ValidationError = "location is required"
	ErrMissingCheckIn       ValidationError = "check_in is required for hotel search"
	ErrMissingCheckOut      ValidationError = "check_out is required for hotel search"
	ErrMissingDate          ValidationError = "date is required for activity search"
	ErrUnknownSearchType    ValidationError = "type must be one of flight, hotel, activity"
)
