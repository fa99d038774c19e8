// Package recommend filters practice-problem candidates against the
// user's skill band and solved set, then draws a uniform random sample.
package recommend

import (
	"math/rand/v2"

	"github.com/vytor/cfpractice/internal/models"
)

// BandWidth is how far above the user's rounded-down rating a candidate
// may sit: the band keeps problems reachable but challenging.
const BandWidth = 200

// Band returns the inclusive difficulty range for a user rating. Rounding
// down to the nearest hundred keeps the band stable across small rating
// fluctuations.
func Band(userRating int) (min, max int) {
	min = userRating / 100 * 100
	return min, min + BandWidth
}

// Filter returns the candidates eligible for recommendation: rated inside
// the user's band, not yet solved, and inside the year range when their
// contest year is known. An unknown contest year never excludes a
// candidate on its own.
func Filter(problems []models.Problem, solved map[string]bool, userRating int,
	years models.YearRange, contestYears map[int64]int) []models.Problem {

	bandMin, bandMax := Band(userRating)

	var candidates []models.Problem
	for _, p := range problems {
		if p.Rating == nil || *p.Rating < bandMin || *p.Rating > bandMax {
			continue
		}
		if solved[p.Key()] {
			continue
		}
		if year, known := contestYears[p.ContestID]; known && !years.Contains(year) {
			continue
		}
		candidates = append(candidates, p)
	}
	return candidates
}

// Sample draws count problems uniformly without replacement via a partial
// Fisher-Yates shuffle, so every subset of size min(count, len) is equally
// likely. A nil rng uses the shared source. The input slice is not
// modified.
func Sample(candidates []models.Problem, count int, rng *rand.Rand) []models.Problem {
	if count <= 0 || len(candidates) == 0 {
		return nil
	}

	pool := make([]models.Problem, len(candidates))
	copy(pool, candidates)

	if count >= len(pool) {
		return pool
	}

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}

	for i := 0; i < count; i++ {
		j := i + intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}

// Select combines Filter and Sample. An empty result is a valid outcome
// meaning no eligible candidates remain, not a failure.
func Select(problems []models.Problem, solved map[string]bool, userRating int,
	years models.YearRange, contestYears map[int64]int, count int, rng *rand.Rand) []models.Problem {
	return Sample(Filter(problems, solved, userRating, years, contestYears), count, rng)
}
