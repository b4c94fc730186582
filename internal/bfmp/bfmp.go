// Package bfmp derives the Blood Film for Malaria Parasites sub-metrics
// (parasites counted, WBC counted, density) shown alongside a positive
// result. The numbers are seeded from the analysis id so the figure on
// screen matches the figure baked into an exported document. Not
// cryptographic, and not a clinical measurement.
package bfmp

import (
	"math"
	"strings"
)

// Result holds the derived counts for one positive analysis
type Result struct {
	ParasitesCounted int `json:"parasites_counted"`
	WBCCounted       int `json:"wbc_counted"`
	// Density is parasites per microliter using the WHO reference count
	// of 8000 white cells: round(parasites / wbc * 8000)
	DensityPerMicroliter int `json:"density_per_microliter"`
}

// Compute returns the derived metrics, or nil unless the verdict
// indicates a positive result. Identical inputs always yield identical
// outputs.
func Compute(id string, confidence float64, verdict string) *Result {
	if !strings.Contains(strings.ToLower(verdict), "positive") {
		return nil
	}

	seed := seedFromID(id)

	// confidence may arrive as a 0-1 fraction from older records
	if confidence <= 1 {
		confidence *= 100
	}

	wbc := int(seededRandom(seed, 1)*21) + 200 // 200-220

	parasiteFactor := math.Max(1, (confidence-50)/2)
	parasites := int(seededRandom(seed, 2)*10) + int(parasiteFactor)

	density := int(math.Round(float64(parasites) / float64(wbc) * 8000))

	return &Result{
		ParasitesCounted:     parasites,
		WBCCounted:           wbc,
		DensityPerMicroliter: density,
	}
}

// seedFromID is a polynomial rolling hash with 32-bit wraparound
// (seed = seed*31 + char over the id's bytes)
func seedFromID(id string) int32 {
	var seed int32
	for i := 0; i < len(id); i++ {
		seed = (seed << 5) - seed + int32(id[i])
	}
	return seed
}

// seededRandom is a sine-driven pseudo-random value in [0,1) at a fixed
// offset from the seed
func seededRandom(seed int32, offset int) float64 {
	x := math.Sin(float64(seed)+float64(offset)) * 10000
	return x - math.Floor(x)
}
