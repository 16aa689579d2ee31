package currency

import (
	"fmt"
	"math"
)

// Format renders an amount with its ISO currency code and thousands
// separators, e.g. "USD 1,234.50". Zero-decimal currencies (IDR, JPY)
// are rounded to whole units.
func Format(code string, amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	var formatted string
	if zeroDecimal(code) {
		intStr := fmt.Sprintf("%.0f", math.Round(amount))
		formatted = addThousandsSeparator(intStr, ",")
	} else {
		intPart := math.Floor(amount)
		cents := math.Round((amount - intPart) * 100)
		if cents >= 100 {
			intPart++
			cents -= 100
		}
		intStr := fmt.Sprintf("%.0f", intPart)
		formatted = fmt.Sprintf("%s.%02.0f", addThousandsSeparator(intStr, ","), cents)
	}

	result := code + " " + formatted
	if negative {
		result = "-" + result
	}

	return result
}

func zeroDecimal(code string) bool {
	switch code {
	case "IDR", "JPY", "KRW", "VND":
		return true
	}
	return false
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
