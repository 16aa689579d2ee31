package ranking

import (
	"testing"

	"github.com/dharmasatrya/tripsearch/internal/models"
)

func option(price float64, rating *float64, duration string) models.BookingOption {
	return models.BookingOption{
		Price:         models.Price{Amount: price, Currency: "USD"},
		Rating:        rating,
		FlightDetails: &models.FlightDetails{Duration: duration},
	}
}

func TestCalculateScores_CheaperFasterScoresLower(t *testing.T) {
	t.Parallel()

	r := 4.0
	scored := CalculateScores([]models.BookingOption{
		option(100, &r, "2h 0m"),
		option(400, &r, "6h 0m"),
	})

	if len(scored) != 2 {
		t.Fatalf("scored %d options, want 2", len(scored))
	}
	if scored[0].BestValueScore >= scored[1].BestValueScore {
		t.Fatalf("cheap fast option scored %v, expensive slow scored %v; lower is better",
			scored[0].BestValueScore, scored[1].BestValueScore)
	}
}

func TestCalculateScores_EmptyInput(t *testing.T) {
	t.Parallel()

	if got := CalculateScores(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}
