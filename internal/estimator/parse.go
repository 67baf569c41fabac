// internal/estimator/parse.go
package estimator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	MinCalories = 20
	MaxCalories = 5000
	MinProtein  = 0
	MaxProtein  = 500
)

// ParseEstimate extracts calories and protein from a model reply. Every
// maximal run of ASCII digits is a number. Two or more numbers give
// (first, second); a single number is calories with zero protein.
func ParseEstimate(text string) (calories, protein int, err error) {
	numbers := extractNumbers(text)
	switch {
	case len(numbers) >= 2:
		return numbers[0], numbers[1], nil
	case len(numbers) == 1:
		return numbers[0], 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: no numbers in %q", ErrParseFailed, truncate(text, 80))
	}
}

// Validate rejects values outside the plausible range for one food item.
func Validate(calories, protein int) error {
	if calories < MinCalories || calories > MaxCalories {
		return fmt.Errorf("%w: calories %d not in [%d, %d]", ErrOutOfRange, calories, MinCalories, MaxCalories)
	}
	if protein < MinProtein || protein > MaxProtein {
		return fmt.Errorf("%w: protein %d not in [%d, %d]", ErrOutOfRange, protein, MinProtein, MaxProtein)
	}
	return nil
}

func extractNumbers(text string) []int {
	var numbers []int
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		n, err := strconv.Atoi(text[start:end])
		if err != nil {
			// Only overflow can fail here; keep the slot so validation rejects it.
			n = math.MaxInt
		}
		numbers = append(numbers, n)
		start = -1
	}
	for i := 0; i < len(text); i++ {
		if isDigit(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return numbers
}

func digitsOnly(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
