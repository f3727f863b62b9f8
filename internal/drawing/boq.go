package drawing

import (
	"math"

	"github.com/planvector/drawing-cli/internal/model"
)

// GenerateBOQ produces one bill-of-quantities row per measurement, treating
// each as the side of a square area. Scanned text cannot attribute a
// dimension to a specific material, so every row is generic until the LLM
// analysis refines it.
func GenerateBOQ(measurements []model.Measurement) []model.BOQLine {
	boq := make([]model.BOQLine, 0, len(measurements))
	for _, m := range measurements {
		v := m.Meters
		boq = append(boq, model.BOQLine{
			Material:   "Generic Material",
			QuantityM2: math.Round(v*v*100) / 100,
		})
	}
	return boq
}
