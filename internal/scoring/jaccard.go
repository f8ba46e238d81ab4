package scoring

import (
	"errors"
	"math"
)

// ErrInvalidWeights signals a scorer constructed with weights that do not
// sum to 1.0. This is a programming error and should fail at startup.
var ErrInvalidWeights = errors.New("scoring weights must sum to 1.0")

const weightEpsilon = 1e-9

// ValidateWeights checks that a weight table forms a convex combination.
func ValidateWeights(weights map[string]float64) error {
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return ErrInvalidWeights
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightEpsilon {
		return ErrInvalidWeights
	}
	return nil
}

// Jaccard computes |A∩B| / |A∪B|. Two empty sets score 0.
func Jaccard[T comparable](a, b map[T]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for item := range a {
		if _, ok := b[item]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// ToSet converts a slice to a membership set.
func ToSet[T comparable](items []T) map[T]struct{} {
	set := make(map[T]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// Clamp bounds a score to [0,1]; scorers saturate rather than overflow.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Round2 rounds a final score to two decimals.
func Round2(score float64) float64 {
	return math.Round(score*100) / 100
}
