package aggregator

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/tripsearch/internal/models"
	"github.com/dharmasatrya/tripsearch/internal/ranking"
)

// Aggregate merges all per-provider results into one filtered, sorted
// result set with summary metadata. Error results contribute an empty
// option list but still appear under ProviderResults for diagnostics.
func Aggregate(results []models.ProviderSearchResult, filters *models.SearchFilters) *models.AggregatedSearchResult {
	merged := make([]models.BookingOption, 0)
	for _, pr := range results {
		if pr.Error != "" {
			continue
		}
		merged = append(merged, pr.Options...)
	}

	filtered := applyFilters(merged, filters)

	sortBy, sortOrder := "", ""
	if filters != nil {
		sortBy = filters.SortBy
		sortOrder = filters.SortOrder
	}
	if sortBy == "best_value" {
		filtered = ranking.CalculateScores(filtered)
	}
	sorted := applySort(filtered, sortBy, sortOrder)

	return &models.AggregatedSearchResult{
		ID:              uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		TotalProviders:  len(results),
		TotalResults:    len(sorted),
		Options:         sorted,
		ProviderResults: results,
		Metadata:        buildMetadata(results, sorted),
	}
}

func applyFilters(options []models.BookingOption, filters *models.SearchFilters) []models.BookingOption {
	if filters == nil {
		return options
	}

	result := make([]models.BookingOption, 0, len(options))
	for _, o := range options {
		if matchesFilters(o, filters) {
			result = append(result, o)
		}
	}
	return result
}

func matchesFilters(o models.BookingOption, filters *models.SearchFilters) bool {
	if filters.PriceMin != nil && o.Price.Amount < *filters.PriceMin {
		return false
	}
	if filters.PriceMax != nil && o.Price.Amount > *filters.PriceMax {
		return false
	}

	if filters.MinRating != nil {
		if o.Rating == nil || *o.Rating < *filters.MinRating {
			return false
		}
	}

	if len(filters.Amenities) > 0 && o.HotelDetails != nil {
		for _, want := range filters.Amenities {
			if !containsFold(o.HotelDetails.Amenities, want) {
				return false
			}
		}
	}

	if o.FlightDetails != nil {
		if len(filters.Airlines) > 0 && !containsFold(filters.Airlines, o.FlightDetails.Airline) {
			return false
		}
		if filters.Stops != nil && stopBucket(o.FlightDetails.Stops) != strings.ToLower(*filters.Stops) {
			return false
		}
	}

	return true
}

func stopBucket(stops int) string {
	switch {
	case stops == 0:
		return models.StopsDirect
	case stops == 1:
		return models.StopsOneStop
	default:
		return models.StopsMultiStop
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func applySort(options []models.BookingOption, sortBy, sortOrder string) []models.BookingOption {
	if len(options) == 0 {
		return options
	}

	ascending := strings.ToLower(sortOrder) != "desc"

	switch strings.ToLower(sortBy) {
	case "rating":
		sort.SliceStable(options, func(i, j int) bool {
			ri, rj := ratingOf(options[i]), ratingOf(options[j])
			if ascending {
				return ri < rj
			}
			return ri > rj
		})

	case "duration":
		sort.SliceStable(options, func(i, j int) bool {
			di, dj := durationMinutes(options[i]), durationMinutes(options[j])
			if ascending {
				return di < dj
			}
			return di > dj
		})

	case "departure":
		sort.SliceStable(options, func(i, j int) bool {
			ti, tj := departureOf(options[i]), departureOf(options[j])
			if ascending {
				return ti.Before(tj)
			}
			return ti.After(tj)
		})

	case "best_value":
		sort.SliceStable(options, func(i, j int) bool {
			if ascending {
				return options[i].BestValueScore < options[j].BestValueScore
			}
			return options[i].BestValueScore > options[j].BestValueScore
		})

	case "price":
		sort.SliceStable(options, func(i, j int) bool {
			if ascending {
				return options[i].Price.Amount < options[j].Price.Amount
			}
			return options[i].Price.Amount > options[j].Price.Amount
		})

	default:
		// Default to price ascending
		sort.SliceStable(options, func(i, j int) bool {
			return options[i].Price.Amount < options[j].Price.Amount
		})
	}

	return options
}

func ratingOf(o models.BookingOption) float64 {
	if o.Rating == nil {
		return 0
	}
	return *o.Rating
}

func departureOf(o models.BookingOption) time.Time {
	if o.FlightDetails != nil {
		return o.FlightDetails.DepartureTime
	}
	return o.Availability.From
}

// durationMinutes parses the free-text "Xh Ym" duration carried by flight
// and activity options into total minutes. Unparseable parts count as 0.
func durationMinutes(o models.BookingOption) int {
	var raw string
	switch {
	case o.FlightDetails != nil:
		raw = o.FlightDetails.Duration
	case o.ActivityDetails != nil:
		raw = o.ActivityDetails.Duration
	default:
		return 0
	}

	total := 0
	for _, part := range strings.Fields(raw) {
		switch {
		case strings.HasSuffix(part, "h"):
			if n, err := strconv.Atoi(strings.TrimSuffix(part, "h")); err == nil {
				total += n * 60
			}
		case strings.HasSuffix(part, "m"):
			if n, err := strconv.Atoi(strings.TrimSuffix(part, "m")); err == nil {
				total += n
			}
		}
	}
	return total
}

func buildMetadata(results []models.ProviderSearchResult, options []models.BookingOption) models.FilterMetadata {
	meta := models.FilterMetadata{
		Providers: make([]string, 0, len(results)),
		Types:     make([]models.SearchType, 0),
	}

	// Providers lists everyone that was consulted, including those whose
	// options were filtered away or whose call failed.
	seenProviders := make(map[string]bool)
	for _, pr := range results {
		if pr.Provider != "" && !seenProviders[pr.Provider] {
			seenProviders[pr.Provider] = true
			meta.Providers = append(meta.Providers, pr.Provider)
		}
	}

	if len(options) == 0 {
		return meta
	}

	meta.PriceRange.Currency = options[0].Price.Currency
	meta.PriceRange.Min = options[0].Price.Amount
	meta.PriceRange.Max = options[0].Price.Amount

	seenTypes := make(map[models.SearchType]bool)
	seenRatings := make(map[float64]bool)

	for _, o := range options {
		if o.Price.Amount < meta.PriceRange.Min {
			meta.PriceRange.Min = o.Price.Amount
		}
		if o.Price.Amount > meta.PriceRange.Max {
			meta.PriceRange.Max = o.Price.Amount
		}

		if !seenTypes[o.Type] {
			seenTypes[o.Type] = true
			meta.Types = append(meta.Types, o.Type)
		}
		if o.Rating != nil && !seenRatings[*o.Rating] {
			seenRatings[*o.Rating] = true
			meta.Ratings = append(meta.Ratings, *o.Rating)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(meta.Ratings)))

	return meta
}
