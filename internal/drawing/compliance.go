package drawing

import (
	"fmt"

	"github.com/planvector/drawing-cli/internal/model"
)

// Building-regulation minimums in meters.
const (
	MinCeilingHeight = 2.3
	MinCorridorWidth = 0.9
	MinDoorWidth     = 0.762
)

// CheckCompliance tests every measurement against each minimum. A scanned
// measurement carries no room context, so one small value can raise several
// issues; the LLM analysis is the place where dimensions get attributed.
func CheckCompliance(measurements []model.Measurement) []string {
	issues := make([]string, 0)
	for _, m := range measurements {
		v := m.Meters
		if v < MinCeilingHeight {
			issues = append(issues, fmt.Sprintf("Ceiling height too low: %g m", v))
		}
		if v < MinCorridorWidth {
			issues = append(issues, fmt.Sprintf("Corridor width too small: %g m", v))
		}
		if v < MinDoorWidth {
			issues = append(issues, fmt.Sprintf("Door width too small: %g m", v))
		}
	}
	return issues
}
