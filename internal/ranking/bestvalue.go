package ranking

import (
	"math"
	"strconv"
	"strings"

	"github.com/dharmasatrya/tripsearch/internal/models"
)

const (
	PriceWeight    = 0.5
	RatingWeight   = 0.3
	DurationWeight = 0.2
)

func CalculateScores(options []models.BookingOption) []models.BookingOption {
	if len(options) == 0 {
		return options
	}

	maxPrice := findMaxPrice(options)
	maxDuration := findMaxDuration(options)

	result := make([]models.BookingOption, len(options))
	for i, o := range options {
		result[i] = o
		result[i].BestValueScore = CalculateBestValue(o, maxPrice, maxDuration)
	}

	return result
}

// Lower score = better value
func CalculateBestValue(option models.BookingOption, maxPrice, maxDuration float64) float64 {
	priceScore := 0.0
	if maxPrice > 0 {
		priceScore = (option.Price.Amount / maxPrice) * 100
	}

	ratingScore := 100.0
	if option.Rating != nil {
		ratingScore = (5 - *option.Rating) * 20
	}

	durationScore := 0.0
	if maxDuration > 0 {
		durationScore = (totalMinutes(option) / maxDuration) * 100
	}

	score := (priceScore * PriceWeight) + (ratingScore * RatingWeight) + (durationScore * DurationWeight)

	return math.Round(score*100) / 100
}

func findMaxPrice(options []models.BookingOption) float64 {
	maxPrice := 0.0
	for _, o := range options {
		if o.Price.Amount > maxPrice {
			maxPrice = o.Price.Amount
		}
	}
	return maxPrice
}

func findMaxDuration(options []models.BookingOption) float64 {
	maxDuration := 0.0
	for _, o := range options {
		if d := totalMinutes(o); d > maxDuration {
			maxDuration = d
		}
	}
	return maxDuration
}

func totalMinutes(o models.BookingOption) float64 {
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
	return float64(total)
}
