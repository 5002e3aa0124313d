package elo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate(t *testing.T) {
	cases := []struct {
		name             string
		ratingA, ratingB float64
		resultA          float64
		wantA, wantB     float64
	}{
		{"draw between equals changes nothing", 1200, 1200, 0.5, 1200, 1200},
		{"win between equals moves half the k factor", 1000, 1000, 1, 1016, 984},
		{"loss between equals moves half the k factor", 1000, 1000, 0, 984, 1016},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, b := Update(tc.ratingA, tc.ratingB, tc.resultA)
			assert.InDelta(t, tc.wantA, a, 1e-9)
			assert.InDelta(t, tc.wantB, b, 1e-9)
		})
	}
}

func TestUpdateConservesRatingMass(t *testing.T) {
	a, b := Update(1435, 987, 1)
	assert.InDelta(t, 1435+987, a+b, 1e-9)

	// An underdog win pays out more than a favorite win.
	favoriteGain := a - 1435
	c, _ := Update(987, 1435, 1)
	underdogGain := c - 987
	assert.Greater(t, underdogGain, favoriteGain)
	assert.Greater(t, favoriteGain, 0.0)
}
