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

var ErrInnLoopUnavailable = errors.New("partner API rate exceeded")

type InnLoopConfig struct {
	APIKey      string
	BaseURL     string
	FailureRate float64
}

// InnLoopProvider is a synthetic hotel supplier skewed toward budget
// chains and hostels.
type InnLoopProvider struct {
	cfg InnLoopConfig
}

func NewInnLoopProvider(cfg InnLoopConfig) *InnLoopProvider {
	return &InnLoopProvider{cfg: cfg}
}

func (p *InnLoopProvider) Name() string {
	return "innloop"
}

func (p *InnLoopProvider) Type() models.SearchType {
	return models.SearchTypeHotel
}

var innloopProperties = []struct {
	name      string
	roomType  string
	nightly   float64
	rating    float64
	amenities []string
}{
	{"LoopStay Express", "Compact Double", 49, 3.6, []string{"wifi"}},
	{"Transit Hub Hostel", "4-Bed Dorm", 22, 3.2, []string{"wifi", "lockers"}},
	{"NestBox Capsules", "Single Capsule", 35, 4.0, []string{"wifi", "lounge"}},
	{"Budget Bay Hotel", "Standard Twin", 61, 3.8, []string{"wifi", "breakfast"}},
}

func (p *InnLoopProvider) Search(ctx context.Context, req models.SearchRequest) (*models.ProviderSearchResult, error) {
	delay := time.Duration(70+rand.Intn(110)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < p.cfg.FailureRate {
		return nil, ErrInnLoopUnavailable
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

	options := make([]models.BookingOption, 0, len(innloopProperties))
	for i, prop := range innloopProperties {
		rate := prop.nightly * (0.95 + float64((seed+uint32(i))%15)/100)
		total := round2(rate * float64(nights) * float64(req.Rooms))
		rating := prop.rating

		options = append(options, models.BookingOption{
			ID:       fmt.Sprintf("innloop-%d-%s-%s", i+1, location, req.CheckIn),
			Provider: p.Name(),
			Type:     models.SearchTypeHotel,
			Title:    prop.name,
			Price: models.Price{
				Amount:    total,
				Currency:  "USD",
				Formatted: currency.Format("USD", total),
				Breakdown: []models.PriceComponent{
					{Label: "room_rate", Amount: total},
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

func (p *InnLoopProvider) GetDetails(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	if !strings.HasPrefix(bookingID, "innloop-") {
		return nil, NewProviderError(p.Name(), ErrBookingNotFound)
	}
	return &models.BookingDetails{
		BookingID:   bookingID,
		Provider:    p.Name(),
		Status:      "confirmed",
		Description: "non-refundable rate, payment at property",
		RetrievedAt: time.Now().UTC(),
	}, nil
}
