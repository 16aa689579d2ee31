package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dharmasatrya/tripsearch/internal/aggregator"
	"github.com/dharmasatrya/tripsearch/internal/breaker"
	"github.com/dharmasatrya/tripsearch/internal/cache"
	"github.com/dharmasatrya/tripsearch/internal/models"
	"github.com/dharmasatrya/tripsearch/internal/providers"
	"github.com/dharmasatrya/tripsearch/internal/ratelimit"
	"github.com/dharmasatrya/tripsearch/internal/retry"
)

const (
	MinRetries = 0
	MaxRetries = 5
)

type Config struct {
	ProviderTimeout time.Duration
	MaxRetries      int
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	FailoverEnabled bool
	Breaker         breaker.Config
	RateLimiter     *ratelimit.SupplierLimiter
}

func DefaultConfig() Config {
	return Config{
		ProviderTimeout: 5 * time.Second,
		MaxRetries:      2,
		BackoffBase:     200 * time.Millisecond,
		BackoffCap:      2 * time.Second,
		FailoverEnabled: true,
		Breaker:         breaker.DefaultConfig(),
	}
}

type NoProvidersError struct {
	Type models.SearchType
}

func (e *NoProvidersError) Error() string {
	return fmt.Sprintf("no providers available for %s", e.Type)
}

type ProviderNotFoundError struct {
	Name string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider not found: %s", e.Name)
}

// Service owns the provider registry, the per-provider circuit breakers,
// the search cache, and the runtime knobs. One instance is shared across
// all concurrent requests; the process entry point owns its lifecycle.
type Service struct {
	cfg      Config
	log      *slog.Logger
	cache    cache.Cache
	breakers *breaker.Registry
	limiter  *ratelimit.SupplierLimiter

	mu        sync.RWMutex
	providers []providers.Provider
	byName    map[string]providers.Provider

	knobs struct {
		sync.RWMutex
		failoverEnabled bool
		maxRetries      int
	}
}

func New(cfg Config, c cache.Cache, log *slog.Logger) *Service {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultConfig().ProviderTimeout
	}
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		cfg:      cfg,
		log:      log,
		cache:    c,
		breakers: breaker.NewRegistry(cfg.Breaker),
		limiter:  cfg.RateLimiter,
		byName:   make(map[string]providers.Provider),
	}
	s.knobs.failoverEnabled = cfg.FailoverEnabled
	s.knobs.maxRetries = clampRetries(cfg.MaxRetries)
	return s
}

func (s *Service) Register(p providers.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Name())
	if _, exists := s.byName[key]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	s.byName[key] = p
	s.providers = append(s.providers, p)
	return nil
}

// Search runs the whole pipeline: cache lookup, validation, provider
// selection, gated concurrent dispatch, aggregation, cache store. A single
// provider failing never fails the call; only having no provider to ask
// does.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.AggregatedSearchResult, error) {
	if result, ok := s.cache.Get(ctx, req); ok {
		s.log.Debug("search cache hit", "type", req.Type, "id", result.ID)
		return result, nil
	}

	if err := req.Validate(); err != nil {
		// The aggregate is still returned, carrying one synthetic failed
		// provider result naming the missing field.
		s.log.Warn("search request invalid", "type", req.Type, "err", err)
		failed := failedResult("request-validation", err)
		return aggregator.Aggregate([]models.ProviderSearchResult{failed}, filtersOf(req)), nil
	}

	selected := s.selectProviders(req)
	if len(selected) == 0 {
		return nil, &NoProvidersError{Type: req.Type}
	}

	results := s.dispatch(ctx, selected, req)
	agg := aggregator.Aggregate(results, filtersOf(req))

	if err := s.cache.Set(ctx, req, agg); err != nil {
		s.log.Warn("search cache store failed", "err", err)
	}

	return agg, nil
}

// dispatch fans out one goroutine per provider and collects every
// outcome. A provider failure becomes an error-bearing result; it never
// aborts the siblings.
func (s *Service) dispatch(ctx context.Context, selected []providers.Provider, req models.SearchRequest) []models.ProviderSearchResult {
	resultCh := make(chan models.ProviderSearchResult, len(selected))
	var wg sync.WaitGroup

	for _, p := range selected {
		wg.Add(1)
		go func(p providers.Provider) {
			defer wg.Done()
			resultCh <- s.callProvider(ctx, p, req)
		}(p)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]models.ProviderSearchResult, 0, len(selected))
	for pr := range resultCh {
		results = append(results, pr)
	}
	return results
}

func (s *Service) callProvider(ctx context.Context, p providers.Provider, req models.SearchRequest) models.ProviderSearchResult {
	name := p.Name()
	br := s.breakers.Get(breakerKey(p))

	// The limiter wait comes first: once Allow grants the half-open probe
	// slot, the only exit is through retry.Do, which always records an
	// outcome and releases it.
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, name); err != nil {
			return failedResultNamed(name, "rate limit wait: "+err.Error())
		}
	}

	if s.FailoverEnabled() && !br.Allow() {
		s.log.Warn("provider skipped, circuit open", "provider", name)
		return failedResultNamed(name, "provider unhealthy: circuit breaker open")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	policy := retry.Policy{
		MaxRetries:  s.MaxRetries(),
		BackoffBase: s.cfg.BackoffBase,
		BackoffCap:  s.cfg.BackoffCap,
	}

	var result *models.ProviderSearchResult
	err := retry.Do(callCtx, policy, br, func(ctx context.Context) error {
		r, err := p.Search(ctx, req)
		if err != nil {
			var perr *providers.ProviderError
			if errors.As(err, &perr) {
				return err
			}
			return providers.NewProviderError(name, err)
		}
		result = r
		return nil
	})
	if err != nil {
		s.log.Warn("provider search failed", "provider", name, "err", err)
		return failedResultNamed(name, err.Error())
	}

	if result.Provider == "" {
		result.Provider = name
	}
	if result.SearchID == "" {
		result.SearchID = uuid.NewString()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	return *result
}

// selectProviders restricts the registry to the request type, then to the
// caller's allow-list. An allow-list that matches nothing is ignored
// rather than producing zero providers.
func (s *Service) selectProviders(req models.SearchRequest) []providers.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make([]providers.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if p.Type() == req.Type {
			byType = append(byType, p)
		}
	}

	if req.Filters == nil || len(req.Filters.Providers) == 0 {
		return byType
	}

	allowed := make([]providers.Provider, 0, len(byType))
	for _, p := range byType {
		for _, want := range req.Filters.Providers {
			if strings.EqualFold(p.Name(), want) {
				allowed = append(allowed, p)
				break
			}
		}
	}
	if len(allowed) == 0 {
		return byType
	}
	return allowed
}

func (s *Service) GetBookingDetails(ctx context.Context, bookingID, providerName string) (*models.BookingDetails, error) {
	p, ok := s.provider(providerName)
	if !ok {
		return nil, &ProviderNotFoundError{Name: providerName}
	}
	return p.GetDetails(ctx, bookingID)
}

// Book probes the provider for the optional direct-booking capability.
func (s *Service) Book(ctx context.Context, providerName string, option models.BookingOption) (*models.BookingConfirmation, error) {
	p, ok := s.provider(providerName)
	if !ok {
		return nil, &ProviderNotFoundError{Name: providerName}
	}
	b, ok := p.(providers.Booker)
	if !ok {
		return nil, fmt.Errorf("booking not supported by provider %s", p.Name())
	}
	return b.Book(ctx, option)
}

func (s *Service) provider(name string) (providers.Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byName[strings.ToLower(name)]
	return p, ok
}

// ProviderHealthStatus reports each registered provider's breaker view
// without side effects.
func (s *Service) ProviderHealthStatus() map[string]models.ProviderHealth {
	s.mu.RLock()
	registered := make([]providers.Provider, len(s.providers))
	copy(registered, s.providers)
	s.mu.RUnlock()

	status := make(map[string]models.ProviderHealth, len(registered))
	for _, p := range registered {
		snap := s.breakers.Get(breakerKey(p)).Snapshot()
		status[p.Name()] = models.ProviderHealth{
			Type:                p.Type(),
			Healthy:             snap.State != breaker.StateOpen.String(),
			BreakerState:        snap.State,
			ConsecutiveFailures: snap.ConsecutiveFailures,
		}
	}
	return status
}

// TriggerHealthCheck probes every registered provider with a canned
// search. Outcomes feed the breakers; failures are logged, never raised.
func (s *Service) TriggerHealthCheck(ctx context.Context) {
	s.mu.RLock()
	registered := make([]providers.Provider, len(s.providers))
	copy(registered, s.providers)
	s.mu.RUnlock()

	var g errgroup.Group
	for _, p := range registered {
		p := p
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
			defer cancel()

			br := s.breakers.Get(breakerKey(p))
			_, err := p.Search(probeCtx, probeRequest(p.Type()))
			if err != nil {
				br.RecordFailure()
				s.log.Warn("health probe failed", "provider", p.Name(), "err", err)
				return nil
			}
			br.RecordSuccess()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) ResetCircuitBreakers() {
	s.breakers.ResetAll()
	s.log.Info("circuit breakers reset")
}

func (s *Service) SetFailoverEnabled(enabled bool) {
	s.knobs.Lock()
	s.knobs.failoverEnabled = enabled
	s.knobs.Unlock()
	s.log.Info("failover updated", "enabled", enabled)
}

func (s *Service) FailoverEnabled() bool {
	s.knobs.RLock()
	defer s.knobs.RUnlock()
	return s.knobs.failoverEnabled
}

// SetMaxRetries clamps to the allowed range and returns the value in
// effect.
func (s *Service) SetMaxRetries(n int) int {
	clamped := clampRetries(n)
	s.knobs.Lock()
	s.knobs.maxRetries = clamped
	s.knobs.Unlock()
	s.log.Info("max retries updated", "requested", n, "effective", clamped)
	return clamped
}

func (s *Service) MaxRetries() int {
	s.knobs.RLock()
	defer s.knobs.RUnlock()
	return s.knobs.maxRetries
}

func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		s.log.Warn("cache clear failed", "err", err)
		return err
	}
	s.log.Info("search cache cleared")
	return nil
}

func clampRetries(n int) int {
	if n < MinRetries {
		return MinRetries
	}
	if n > MaxRetries {
		return MaxRetries
	}
	return n
}

func breakerKey(p providers.Provider) string {
	return strings.ToLower(p.Name()) + ":" + string(p.Type())
}

func filtersOf(req models.SearchRequest) *models.SearchFilters {
	return req.Filters
}

func failedResult(provider string, err error) models.ProviderSearchResult {
	return failedResultNamed(provider, err.Error())
}

func failedResultNamed(provider, msg string) models.ProviderSearchResult {
	return models.ProviderSearchResult{
		Provider:  provider,
		SearchID:  uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Options:   []models.BookingOption{},
		Error:     msg,
	}
}

// probeRequest builds the minimal valid request for a type-directed
// health probe.
func probeRequest(t models.SearchType) models.SearchRequest {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	dayAfter := time.Now().AddDate(0, 0, 2).Format("2006-01-02")

	switch t {
	case models.SearchTypeHotel:
		return models.SearchRequest{
			Type:     models.SearchTypeHotel,
			Location: "singapore",
			CheckIn:  tomorrow,
			CheckOut: dayAfter,
			Guests:   1,
			Rooms:    1,
		}
	case models.SearchTypeActivity:
		return models.SearchRequest{
			Type:     models.SearchTypeActivity,
			Location: "singapore",
			Date:     tomorrow,
			Guests:   1,
		}
	default:
		return models.SearchRequest{
			Type:          models.SearchTypeFlight,
			Origin:        "CGK",
			Destination:   "DPS",
			DepartureDate: tomorrow,
			Passengers:    1,
			CabinClass:    "economy",
		}
	}
}
