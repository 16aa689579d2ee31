package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/tripsearch/internal/models"
	"github.com/dharmasatrya/tripsearch/pkg/currency"
)

var ErrStayCoveUnavailable = errors.New("inventory service unavailable")

type StayCoveConfig struct {
	APIKey      string
	BaseURL     string
	FailureRate float64
}

// StayCoveProvider is a synthetic hotel supplier covering mid-range and
// boutique properties.
type StayCoveProvider struct {
	cfg StayCoveConfig
}

func NewStayCoveProvider(cfg StayCoveConfig) *StayCoveProvider {
	return &StayCoveProvider{cfg: cfg}
}

func (p *StayCoveProvider) Name() string {
	return "staycove"
}

func (p *StayCoveProvider) Type() models.SearchType {
	return models.SearchTypeHotel
}

var staycoveProperties = []struct {
	name      string
	roomType  string
	nightly   float64
	rating    float64
	amenities []string
}{
	{"The Cove Boutique", "Deluxe Double", 145, 4.6, []string{"wifi", "pool", "breakfast", "spa"}},
	{"Harbourline Suites", "Junior Suite", 210, 4.8, []string{"wifi", "pool", "gym", "breakfast", "parking"}},
	{"Citypad Central", "Standard Queen", 88, 4.1, []string{"wifi", "gym"}},
	{"Garden Quarter Inn", "Twin Room", 72, 3.9, []string{"wifi", "breakfast", "parking"}},
	{"Atlas Riverside", "King Riverside", 178, 4.5, []string{"wifi", "pool", "breakfast", "bar"}},
}

func (p *StayCoveProvider) Search(ctx context.Context, req models.SearchRequest) (*models.ProviderSearchResult, error) {
	delay := time.Duration(50+rand.Intn(70)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < p.cfg.FailureRate {
		return nil, ErrStayCoveUnavailable
	}

	checkIn, err := time.Parse("2006-01-02", req.CheckIn)
	if err != nil {
		return nil, NewProviderError(p.Name(), fmt.Errorf("bad check_in %q: %w", req.CheckIn, err))
	}
	checkOut, err := time.Parse("2006-01-02", req.CheckOut)
	if err != nil {
		return nil, NewProviderError(p.Name(), fmt.Errorf("bad check_out %q: %w", req.CheckOut, err))
	}
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights < 1 {
		nights = 1
	}

	seed := routeSeed(p.Name(), req.Location, req.CheckIn)
	location := strings.ToLower(req.Location)

	options := make([]models.BookingOption, 0, len(staycoveProperties))
	for i, prop := range staycoveProperties {
		rate := prop.nightly * (0.9 + float64((seed+uint32(i))%25)/100)
		total := rate * float64(nights) * float64(req.Rooms)
		cityTax := total * 0.07
		rating := prop.rating

		options = append(options, models.BookingOption{
			ID:       fmt.Sprintf("staycove-%d-%s-%s", i+1, location, req.CheckIn),
			Provider: p.Name(),
			Type:     models.SearchTypeHotel,
			Title:    prop.name,
			Price: models.Price{
				Amount:    round2(total + cityTax),
				Currency:  "USD",
				Formatted: currency.Format("USD", round2(total+cityTax)),
				Breakdown: []models.PriceComponent{
					{Label: "room_rate", Amount: round2(total)},
					{Label: "city_tax", Amount: round2(cityTax)},
				},
			},
			Rating:   &rating,
			Location: &location,
			Availability: models.Availability{
				From: checkIn,
				To:   checkOut,
			},
			HotelDetails: &models.HotelDetails{
				RoomType:  prop.roomType,
				CheckIn:   req.CheckIn,
				CheckOut:  req.CheckOut,
				Nights:    nights,
				Amenities: prop.amenities,
			},
		})
	}

	return &models.ProviderSearchResult{
		Provider:  p.Name(),
		SearchID:  uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Options:   options,
	}, nil
}

func (p *StayCoveProvider) GetDetails(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	if !strings.HasPrefix(bookingID, "staycove-") {
		return nil, NewProviderError(p.Name(), ErrBookingNotFound)
	}
	return &models.BookingDetails{
		BookingID:   bookingID,
		Provider:    p.Name(),
		Status:      "confirmed",
		Description: "free cancellation until 48h before check-in",
		RetrievedAt: time.Now().UTC(),
	}, nil
}
