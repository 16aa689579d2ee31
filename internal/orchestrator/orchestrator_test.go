package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dharmasatrya/tripsearch/internal/breaker"
	"github.com/dharmasatrya/tripsearch/internal/cache"
	"github.com/dharmasatrya/tripsearch/internal/models"
	"github.com/dharmasatrya/tripsearch/internal/providers"
	"github.com/dharmasatrya/tripsearch/internal/ratelimit"
)

type fakeProvider struct {
	name string
	typ  models.SearchType

	mu        sync.Mutex
	calls     int
	fail      bool
	searchErr error
}

func (f *fakeProvider) Name() string            { return f.name }
func (f *fakeProvider) Type() models.SearchType { return f.typ }

func (f *fakeProvider) Search(ctx context.Context, req models.SearchRequest) (*models.ProviderSearchResult, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	searchErr := f.searchErr
	f.mu.Unlock()

	if fail {
		if searchErr != nil {
			return nil, searchErr
		}
		return nil, errors.New("supplier exploded")
	}

	price := 100.0
	return &models.ProviderSearchResult{
		Provider:  f.name,
		SearchID:  f.name + "-search",
		Timestamp: time.Now(),
		Options: []models.BookingOption{{
			ID:       f.name + "-opt-1",
			Provider: f.name,
			Type:     f.typ,
			Title:    f.name + " option",
			Price:    models.Price{Amount: price, Currency: "USD"},
		}},
	}, nil
}

func (f *fakeProvider) GetDetails(ctx context.Context, bookingID string) (*models.BookingDetails, error) {
	if !strings.HasPrefix(bookingID, f.name+"-") {
		return nil, errors.New("booking not found")
	}
	return &models.BookingDetails{BookingID: bookingID, Provider: f.name, Status: "confirmed"}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeProvider) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func testConfig() Config {
	return Config{
		ProviderTimeout: time.Second,
		MaxRetries:      0,
		BackoffBase:     time.Millisecond,
		BackoffCap:      2 * time.Millisecond,
		FailoverEnabled: true,
		Breaker:         breaker.Config{FailureThreshold: 5, Cooldown: time.Minute},
	}
}

func flightRequest() models.SearchRequest {
	return models.SearchRequest{
		Type:          models.SearchTypeFlight,
		Origin:        "CGK",
		Destination:   "DPS",
		DepartureDate: "2026-09-10",
	}
}

func newTestService(t *testing.T, cfg Config, provs ...*fakeProvider) *Service {
	t.Helper()
	svc := New(cfg, cache.NewNoOpCache(), nil)
	for _, p := range provs {
		if err := svc.Register(p); err != nil {
			t.Fatalf("register %s: %v", p.name, err)
		}
	}
	return svc
}

func TestSearch_ContainsProviderFailure(t *testing.T) {
	t.Parallel()

	good := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight}
	bad := &fakeProvider{name: "skyvista", typ: models.SearchTypeFlight, fail: true}
	svc := newTestService(t, testConfig(), good, bad)

	result, err := svc.Search(context.Background(), flightRequest())
	if err != nil {
		t.Fatalf("one failing provider must not fail the search: %v", err)
	}
	if result.TotalProviders != 2 {
		t.Fatalf("TotalProviders = %d, want 2", result.TotalProviders)
	}
	if result.TotalResults != 1 {
		t.Fatalf("TotalResults = %d, want 1 (good provider's option)", result.TotalResults)
	}

	var sawError bool
	for _, pr := range result.ProviderResults {
		if pr.Provider == "skyvista" {
			if pr.Error == "" {
				t.Fatal("failing provider's error string must be present")
			}
			if len(pr.Options) != 0 {
				t.Fatal("error result must carry an empty option list")
			}
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("missing per-provider result for the failing provider")
	}
}

func TestSearch_NoProvidersForType(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testConfig(), &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight})

	_, err := svc.Search(context.Background(), models.SearchRequest{
		Type:     models.SearchTypeActivity,
		Location: "ubud",
		Date:     "2026-09-11",
	})

	var noProviders *NoProvidersError
	if !errors.As(err, &noProviders) {
		t.Fatalf("err = %v, want NoProvidersError", err)
	}
	if got := err.Error(); got != "no providers available for activity" {
		t.Fatalf("err = %q, want %q", got, "no providers available for activity")
	}
}

func TestSearch_ValidationShortCircuits(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight}
	svc := newTestService(t, testConfig(), p)

	req := flightRequest()
	req.Origin = ""

	result, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("validation failure must still return an aggregate: %v", err)
	}
	if p.callCount() != 0 {
		t.Fatal("no provider may be contacted on a validation failure")
	}
	if len(result.ProviderResults) != 1 {
		t.Fatalf("ProviderResults = %d entries, want 1 synthetic", len(result.ProviderResults))
	}
	if !strings.Contains(result.ProviderResults[0].Error, "origin is required") {
		t.Fatalf("synthetic error = %q, want it to name the missing field", result.ProviderResults[0].Error)
	}
	if result.TotalResults != 0 {
		t.Fatalf("TotalResults = %d, want 0", result.TotalResults)
	}
}

func TestSearch_RetryBound(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxRetries = 2
	p := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight, fail: true}
	svc := newTestService(t, cfg, p)

	if _, err := svc.Search(context.Background(), flightRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.callCount(); got != 3 {
		t.Fatalf("provider attempted %d times, want 3 (1 initial + 2 retries)", got)
	}
}

func TestSearch_OpenBreakerSkipsProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Breaker = breaker.Config{FailureThreshold: 1, Cooldown: time.Hour}
	p := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight, fail: true}
	svc := newTestService(t, cfg, p)

	ctx := context.Background()
	if _, err := svc.Search(ctx, flightRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterTrip := p.callCount()

	result, err := svc.Search(ctx, flightRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.callCount(); got != callsAfterTrip {
		t.Fatalf("open breaker must not contact the provider: %d calls, had %d", got, callsAfterTrip)
	}
	if !strings.Contains(result.ProviderResults[0].Error, "unhealthy") {
		t.Fatalf("skipped provider error = %q, want a provider-unhealthy message", result.ProviderResults[0].Error)
	}
}

func TestSearch_BreakerRecoversAfterRateLimitedCall(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Breaker = breaker.Config{FailureThreshold: 1, Cooldown: 30 * time.Millisecond}
	cfg.RateLimiter = ratelimit.NewSupplierLimiter(ratelimit.DefaultConfig())
	p := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight, fail: true}
	svc := newTestService(t, cfg, p)

	if _, err := svc.Search(context.Background(), flightRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status := svc.ProviderHealthStatus(); status["aerolink"].BreakerState != "open" {
		t.Fatalf("breaker state = %q, want open", status["aerolink"].BreakerState)
	}

	time.Sleep(50 * time.Millisecond)

	// The caller bails in the rate-limiter wait. That must not consume
	// the half-open probe slot, or the breaker would never see another
	// outcome and stay wedged.
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := svc.Search(cancelled, flightRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.ProviderResults[0].Error, "rate limit wait") {
		t.Fatalf("error = %q, want a rate-limit-wait message", result.ProviderResults[0].Error)
	}
	callsBefore := p.callCount()

	p.setFail(false)
	time.Sleep(50 * time.Millisecond)

	if _, err := svc.Search(context.Background(), flightRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.callCount(); got != callsBefore+1 {
		t.Fatalf("provider attempted %d times, want %d (recovered breaker must admit the call)", got, callsBefore+1)
	}
	if status := svc.ProviderHealthStatus(); status["aerolink"].BreakerState != "closed" {
		t.Fatalf("breaker state = %q, want closed after successful call", status["aerolink"].BreakerState)
	}
}

func TestSearch_ProviderErrorNotDoubleWrapped(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		name:      "aerolink",
		typ:       models.SearchTypeFlight,
		fail:      true,
		searchErr: providers.NewProviderError("aerolink", errors.New(`bad departure_date "2026-13-40"`)),
	}
	svc := newTestService(t, testConfig(), p)

	result, err := svc.Search(context.Background(), flightRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := result.ProviderResults[0].Error
	if want := `aerolink: bad departure_date "2026-13-40"`; got != want {
		t.Fatalf("error = %q, want %q (single provider prefix)", got, want)
	}
}

func TestSearch_FailoverDisabledAlwaysAttempts(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Breaker = breaker.Config{FailureThreshold: 1, Cooldown: time.Hour}
	cfg.FailoverEnabled = false
	p := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight, fail: true}
	svc := newTestService(t, cfg, p)

	ctx := context.Background()
	svc.Search(ctx, flightRequest())
	before := p.callCount()
	svc.Search(ctx, flightRequest())

	if got := p.callCount(); got <= before {
		t.Fatalf("with failover disabled the provider must be attempted again: %d calls, had %d", got, before)
	}
}

func TestSearch_ProviderAllowList(t *testing.T) {
	t.Parallel()

	aero := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight}
	sky := &fakeProvider{name: "skyvista", typ: models.SearchTypeFlight}
	svc := newTestService(t, testConfig(), aero, sky)

	req := flightRequest()
	req.Filters = &models.SearchFilters{Providers: []string{"AEROLINK"}}

	result, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalProviders != 1 {
		t.Fatalf("TotalProviders = %d, want 1 (allow-list)", result.TotalProviders)
	}
	if sky.callCount() != 0 {
		t.Fatal("provider outside the allow-list must not be contacted")
	}
}

func TestSearch_EmptyAllowListIntersectionIgnored(t *testing.T) {
	t.Parallel()

	aero := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight}
	sky := &fakeProvider{name: "skyvista", typ: models.SearchTypeFlight}
	svc := newTestService(t, testConfig(), aero, sky)

	req := flightRequest()
	req.Filters = &models.SearchFilters{Providers: []string{"ghostair"}}

	result, err := svc.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalProviders != 2 {
		t.Fatalf("TotalProviders = %d, want 2 (unmatched allow-list is ignored)", result.TotalProviders)
	}
}

func TestSetMaxRetries_Clamps(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testConfig())

	if got := svc.SetMaxRetries(10); got != 5 {
		t.Fatalf("SetMaxRetries(10) = %d, want clamp to 5", got)
	}
	if got := svc.SetMaxRetries(-1); got != 0 {
		t.Fatalf("SetMaxRetries(-1) = %d, want clamp to 0", got)
	}
	if got := svc.SetMaxRetries(3); got != 3 || svc.MaxRetries() != 3 {
		t.Fatalf("SetMaxRetries(3) = %d (stored %d), want 3", got, svc.MaxRetries())
	}
}

func TestGetBookingDetails(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight}
	svc := newTestService(t, testConfig(), p)
	ctx := context.Background()

	details, err := svc.GetBookingDetails(ctx, "aerolink-opt-1", "aerolink")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.Provider != "aerolink" {
		t.Fatalf("Provider = %q, want aerolink", details.Provider)
	}

	_, err = svc.GetBookingDetails(ctx, "x", "ghostair")
	var notFound *ProviderNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ProviderNotFoundError", err)
	}
}

func TestBook_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "skyvista", typ: models.SearchTypeFlight}
	svc := newTestService(t, testConfig(), p)

	_, err := svc.Book(context.Background(), "skyvista", models.BookingOption{ID: "skyvista-opt-1"})
	if err == nil || !strings.Contains(err.Error(), "booking not supported") {
		t.Fatalf("err = %v, want booking-not-supported", err)
	}
}

func TestProviderHealthStatus(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Breaker = breaker.Config{FailureThreshold: 1, Cooldown: time.Hour}
	good := &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight}
	bad := &fakeProvider{name: "skyvista", typ: models.SearchTypeFlight, fail: true}
	svc := newTestService(t, cfg, good, bad)

	svc.Search(context.Background(), flightRequest())

	status := svc.ProviderHealthStatus()
	if len(status) != 2 {
		t.Fatalf("status has %d entries, want 2", len(status))
	}
	if !status["aerolink"].Healthy || status["aerolink"].BreakerState != "closed" {
		t.Fatalf("aerolink = %+v, want healthy/closed", status["aerolink"])
	}
	if status["skyvista"].Healthy || status["skyvista"].BreakerState != "open" {
		t.Fatalf("skyvista = %+v, want unhealthy/open", status["skyvista"])
	}

	svc.ResetCircuitBreakers()
	status = svc.ProviderHealthStatus()
	if !status["skyvista"].Healthy {
		t.Fatalf("skyvista after reset = %+v, want healthy", status["skyvista"])
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testConfig(), &fakeProvider{name: "aerolink", typ: models.SearchTypeFlight})
	if err := svc.Register(&fakeProvider{name: "AeroLink", typ: models.SearchTypeFlight}); err == nil {
		t.Fatal("duplicate provider name must be rejected")
	}
}
