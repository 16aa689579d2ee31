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

var ErrSkyVistaUnavailable = errors.New("upstream gateway timeout")

type SkyVistaConfig struct {
	APIKey      string
	BaseURL     string
	FailureRate float64
}

// SkyVistaProvider is a synthetic budget-carrier flight supplier. Unlike
// AeroLink it does not support direct booking.
type SkyVistaProvider struct {
	cfg SkyVistaConfig
}

func NewSkyVistaProvider(cfg SkyVistaConfig) *SkyVistaProvider {
	return &SkyVistaProvider{cfg: cfg}
}

func (p *SkyVistaProvider) Name() string {
	return "skyvista"
}

func (p *SkyVistaProvider) Type() models.SearchType {
	return models.SearchTypeFlight
}

var skyvistaAirlines = []struct {
	code string
	name string
}{
	{"SV", "SkyVista Air"},
	{"QZ", "AirAsia Indonesia"},
}

func (p *SkyVistaProvider) Search(ctx context.Context, req models.SearchRequest) (*models.ProviderSearchResult, error) {
	delay := time.Duration(60+rand.Intn(90)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < p.cfg.FailureRate {
		return nil, ErrSkyVistaUnavailable
	}

	day, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return nil, NewProviderError(p.Name(), fmt.Errorf("bad departure_date %q: %w", req.DepartureDate, err))
	}

	seed := routeSeed(p.Name(), req.Origin, req.Destination, req.DepartureDate)
	rng := rand.New(rand.NewSource(int64(seed)))

	origin := strings.ToUpper(req.Origin)
	destination := strings.ToUpper(req.Destination)

	options := make([]models.BookingOption, 0, 4)
	for i, hour := range []int{5, 11, 15, 22} {
		airline := skyvistaAirlines[rng.Intn(len(skyvistaAirlines))]
		// Budget carrier: mostly direct, low fares, no frills.
		stops := 0
		if rng.Intn(4) == 0 {
			stops = 1
		}
		durMin := 90 + stops*120 + rng.Intn(30)
		base := 45 + float64(seed%130) + float64(i*20) + float64(stops*15)
		fees := 12 + base*0.1

		depart := time.Date(day.Year(), day.Month(), day.Day(), hour, 5*rng.Intn(12), 0, 0, time.UTC)
		arrive := depart.Add(time.Duration(durMin) * time.Minute)
		rating := 3.0 + float64(rng.Intn(12))/10

		flightNumber := fmt.Sprintf("%s%d", airline.code, 1000+rng.Intn(900))

		options = append(options, models.BookingOption{
			ID:       fmt.Sprintf("skyvista-%s-%s-%s", flightNumber, req.DepartureDate, depart.Format("1504")),
			Provider: p.Name(),
			Type:     models.SearchTypeFlight,
			Title:    fmt.Sprintf("%s %s %s-%s", airline.name, flightNumber, origin, destination),
			Price: models.Price{
				Amount:    round2(base + fees),
				Currency:  "USD",
				Formatted: currency.Format("USD", round2(base+fees)),
				Breakdown: []models.PriceComponent{
					{Label: "base_fare", Amount: round2(base)},
					{Label: "booking_fee", Amount: round2(fees)},
				},
			},
			Rating: &rating,
			Availability: models.Availability{
				From: depart.Add(-72 * time.Hour),
				To:   depart,
			},
			FlightDetails: &models.FlightDetails{
				Airline:       airline.name,
				FlightNumber:  flightNumber,
				Origin:        origin,
				Destination:   destination,
				DepartureTime: depart,
				ArrivalTime:   arrive,
				Duration:      fmt.Sprintf("%dh %dm", durMin/60, durMin%60),
				Stops:         stops,
				CabinClass:    req.CabinClass,
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

func (p *SkyVistaProvider) GetDetails(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	if !strings.HasPrefix(bookingID, "skyvista-") {
		return nil, NewProviderError(p.Name(), ErrBookingNotFound)
	}
	return &models.BookingDetails{
		BookingID:   bookingID,
		Provider:    p.Name(),
		Status:      "confirmed",
		Description: "hand baggage only, seat assigned at gate",
		RetrievedAt: time.Now().UTC(),
	}, nil
}
