// Package elo implements the rating arithmetic applied after ranked games.
package elo

import "math"

const kFactor = 32

// InitialRating is assigned to players the database has never seen.
const InitialRating = 1000

// Update returns the post-game ratings for two players given the result from
// A's perspective: 1 win, 0 loss, 0.5 draw.
func Update(ratingA, ratingB, resultA float64) (float64, float64) {
	resultB := 1 - resultA

	expectedA := 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
	expectedB := 1 - expectedA

	return ratingA + kFactor*(resultA-expectedA),
		ratingB + kFactor*(resultB-expectedB)
}
