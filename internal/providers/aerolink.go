package providers

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/tripsearch/internal/models"
	"github.com/dharmasatrya/tripsearch/pkg/currency"
)

var ErrAeroLinkUnavailable = errors.New("temporary service unavailable")

type AeroLinkConfig struct {
	APIKey      string
	BaseURL     string
	FailureRate float64
}

// AeroLinkProvider is a synthetic flight supplier. It generates a
// deterministic schedule per route and day, with simulated latency and a
// configurable failure rate. It also implements the Booker extension.
type AeroLinkProvider struct {
	cfg AeroLinkConfig
}

func NewAeroLinkProvider(cfg AeroLinkConfig) *AeroLinkProvider {
	return &AeroLinkProvider{cfg: cfg}
}

func (p *AeroLinkProvider) Name() string {
	return "aerolink"
}

func (p *AeroLinkProvider) Type() models.SearchType {
	return models.SearchTypeFlight
}

var aerolinkAirlines = []struct {
	code string
	name string
}{
	{"AL", "AeroLink Express"},
	{"GA", "Garuda Indonesia"},
	{"SQ", "Singapore Airlines"},
}

func (p *AeroLinkProvider) Search(ctx context.Context, req models.SearchRequest) (*models.ProviderSearchResult, error) {
	delay := time.Duration(40+rand.Intn(60)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if rand.Float64() < p.cfg.FailureRate {
		return nil, ErrAeroLinkUnavailable
	}

	day, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return nil, NewProviderError(p.Name(), fmt.Errorf("bad departure_date %q: %w", req.DepartureDate, err))
	}

	seed := routeSeed(p.Name(), req.Origin, req.Destination, req.DepartureDate)
	rng := rand.New(rand.NewSource(int64(seed)))

	options := make([]models.BookingOption, 0, 5)
	departHours := []int{6, 9, 13, 17, 20}
	for i, hour := range departHours {
		airline := aerolinkAirlines[rng.Intn(len(aerolinkAirlines))]
		stops := rng.Intn(3)
		durMin := 95 + stops*110 + rng.Intn(40)
		base := 80 + float64(seed%200) + float64(i*35) + float64(stops*25)
		taxes := base * 0.18

		depart := time.Date(day.Year(), day.Month(), day.Day(), hour, 10*rng.Intn(6), 0, 0, time.UTC)
		arrive := depart.Add(time.Duration(durMin) * time.Minute)
		rating := 3.5 + float64(rng.Intn(14))/10

		flightNumber := fmt.Sprintf("%s%d", airline.code, 100+rng.Intn(800))
		origin := strings.ToUpper(req.Origin)
		destination := strings.ToUpper(req.Destination)

		options = append(options, models.BookingOption{
			ID:       fmt.Sprintf("aerolink-%s-%s-%s", flightNumber, req.DepartureDate, depart.Format("1504")),
			Provider: p.Name(),
			Type:     models.SearchTypeFlight,
			Title:    fmt.Sprintf("%s %s %s-%s", airline.name, flightNumber, origin, destination),
			Price: models.Price{
				Amount:    round2(base + taxes),
				Currency:  "USD",
				Formatted: currency.Format("USD", round2(base+taxes)),
				Breakdown: []models.PriceComponent{
					{Label: "base_fare", Amount: round2(base)},
					{Label: "taxes_and_fees", Amount: round2(taxes)},
				},
			},
			Rating: &rating,
			Availability: models.Availability{
				From: depart.Add(-48 * time.Hour),
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

func (p *AeroLinkProvider) GetDetails(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	if !strings.HasPrefix(bookingID, "aerolink-") {
		return nil, NewProviderError(p.Name(), ErrBookingNotFound)
	}
	return &models.BookingDetails{
		BookingID:   bookingID,
		Provider:    p.Name(),
		Status:      "confirmed",
		Description: "e-ticket issued, check in opens 24h before departure",
		RetrievedAt: time.Now().UTC(),
	}, nil
}

// Book implements the optional direct-booking extension.
func (p *AeroLinkProvider) Book(ctx context.Context, option models.BookingOption) (*models.BookingConfirmation, error) {
	select {
	case <-time.After(time.Duration(30+rand.Intn(40)) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &models.BookingConfirmation{
		ConfirmationID: "AL-" + uuid.NewString()[:8],
		Provider:       p.Name(),
		OptionID:       option.ID,
		Status:         "confirmed",
		BookedAt:       time.Now().UTC(),
	}, nil
}

func routeSeed(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(p)))
	}
	return h.Sum32()
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
