package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/tripsearch/internal/models"
)

const keyPrefix = "search:"

type Cache interface {
	Get(ctx context.Context, req models.SearchRequest) (*models.AggregatedSearchResult, bool)
	Set(ctx context.Context, req models.SearchRequest, result *models.AggregatedSearchResult) error
	Clear(ctx context.Context) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     "localhost",
		Port:     "6379",
		Password: "",
		DB:       0,
		TTL:      5 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultRedisConfig().TTL
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

// Get returns the stored result verbatim, aggregate id included, so two
// searches with the same normalized parameters inside the TTL window are
// observably the same search.
func (c *RedisCache) Get(ctx context.Context, req models.SearchRequest) (*models.AggregatedSearchResult, bool) {
	data, err := c.client.Get(ctx, generateKey(req)).Bytes()
	if err != nil {
		return nil, false
	}

	var result models.AggregatedSearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}

	return &result, true
}

func (c *RedisCache) Set(ctx context.Context, req models.SearchRequest, result *models.AggregatedSearchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, generateKey(req), data, c.ttl).Err()
}

// Clear drops every cached search wholesale. There is no partial
// invalidation.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, req models.SearchRequest) (*models.AggregatedSearchResult, bool) {
	return nil, false
}

func (c *NoOpCache) Set(ctx context.Context, req models.SearchRequest, result *models.AggregatedSearchResult) error {
	return nil
}

func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

// generateKey hashes a normalized view of the request and its filters.
// Timestamps are rounded to the nearest hour so near-duplicate searches
// share an entry.
func generateKey(req models.SearchRequest) string {
	keyData := struct {
		Type          models.SearchType
		Origin        string
		Destination   string
		DepartureDate string
		ReturnDate    string
		CabinClass    string
		Location      string
		CheckIn       string
		CheckOut      string
		Date          string
		Passengers    int
		Guests        int
		Rooms         int
		BudgetMin     float64
		BudgetMax     float64
		Providers     []string
		PriceMin      float64
		PriceMax      float64
		MinRating     float64
		Amenities     []string
		Airlines      []string
		Stops         string
		SortBy        string
		SortOrder     string
	}{
		Type:          req.Type,
		Origin:        strings.ToUpper(req.Origin),
		Destination:   strings.ToUpper(req.Destination),
		DepartureDate: roundToHour(req.DepartureDate),
		CabinClass:    strings.ToLower(req.CabinClass),
		Location:      strings.ToLower(req.Location),
		CheckIn:       roundToHour(req.CheckIn),
		CheckOut:      roundToHour(req.CheckOut),
		Date:          roundToHour(req.Date),
		Passengers:    req.Passengers,
		Guests:        req.Guests,
		Rooms:         req.Rooms,
	}

	if req.ReturnDate != nil {
		keyData.ReturnDate = roundToHour(*req.ReturnDate)
	}
	if req.BudgetMin != nil {
		keyData.BudgetMin = *req.BudgetMin
	}
	if req.BudgetMax != nil {
		keyData.BudgetMax = *req.BudgetMax
	}

	if f := req.Filters; f != nil {
		keyData.Providers = sortedLower(f.Providers)
		keyData.Amenities = sortedLower(f.Amenities)
		keyData.Airlines = sortedLower(f.Airlines)
		if f.PriceMin != nil {
			keyData.PriceMin = *f.PriceMin
		}
		if f.PriceMax != nil {
			keyData.PriceMax = *f.PriceMax
		}
		if f.MinRating != nil {
			keyData.MinRating = *f.MinRating
		}
		if f.Stops != nil {
			keyData.Stops = strings.ToLower(*f.Stops)
		}
		keyData.SortBy = strings.ToLower(f.SortBy)
		keyData.SortOrder = strings.ToLower(f.SortOrder)
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return keyPrefix + hex.EncodeToString(hash[:])
}

var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// roundToHour rounds a timestamp string to the nearest hour. Date-only
// strings and anything unparseable pass through unchanged.
func roundToHour(s string) string {
	if s == "" {
		return s
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Round(time.Hour).Format(time.RFC3339)
		}
	}
	return s
}

func sortedLower(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	sort.Strings(out)
	return out
}
