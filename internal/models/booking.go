package models

import "time"

type PriceComponent struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type Price struct {
	Amount    float64          `json:"amount"`
	Currency  string           `json:"currency"`
	Formatted string           `json:"formatted"`
	Breakdown []PriceComponent `json:"breakdown,omitempty"`
}

type Availability struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type FlightDetails struct {
	Airline       string    `json:"airline"`
	FlightNumber  string    `json:"flight_number"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Duration      string    `json:"duration"`
	Stops         int       `json:"stops"`
	CabinClass    string    `json:"cabin_class"`
}

type HotelDetails struct {
	RoomType  string   `json:"room_type"`
	CheckIn   string   `json:"check_in"`
	CheckOut  string   `json:"check_out"`
	Nights    int      `json:"nights"`
	Amenities []string `json:"amenities,omitempty"`
}

type ActivityDetails struct {
	Category     string `json:"category"`
	Date         string `json:"date"`
	Duration     string `json:"duration"`
	MeetingPoint string `json:"meeting_point,omitempty"`
}

// BookingOption is a supplier result normalized into the shape the
// aggregation pipeline works on. Exactly one of the detail variants is
// populated, matching Type.
type BookingOption struct {
	ID              string           `json:"id"`
	Provider        string           `json:"provider"`
	Type            SearchType       `json:"type"`
	Title           string           `json:"title"`
	Price           Price            `json:"price"`
	Rating          *float64         `json:"rating,omitempty"`
	Location        *string          `json:"location,omitempty"`
	Availability    Availability     `json:"availability"`
	FlightDetails   *FlightDetails   `json:"flight_details,omitempty"`
	HotelDetails    *HotelDetails    `json:"hotel_details,omitempty"`
	ActivityDetails *ActivityDetails `json:"activity_details,omitempty"`
	BestValueScore  float64          `json:"best_value_score,omitempty"`
}

type BookingDetails struct {
	BookingID   string    `json:"booking_id"`
	Provider    string    `json:"provider"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

type BookingConfirmation struct {
	ConfirmationID string    `json:"confirmation_id"`
	Provider       string    `json:"provider"`
	OptionID       string    `json:"option_id"`
	Status         string    `json:"status"`
	BookedAt       time.Time `json:"booked_at"`
}
