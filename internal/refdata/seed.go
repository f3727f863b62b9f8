package refdata

import "github.com/planvector/drawing-cli/internal/model"

// Seed returns the built-in dataset for a category. It is the last-resort
// fallback when both the API and the on-disk files are unavailable. Item IDs
// are stable so repeated fallbacks produce identical data.
func Seed(category model.Category) []model.ReferenceItem {
	switch category {
	case model.CategoryMaterials:
		return []model.ReferenceItem{
			{ID: "mat-001", Name: "Concrete C25/30", Description: "Ready-mix structural concrete for foundations and slabs",
				Extra: map[string]any{"unit": "m³", "category": "structural"}},
			{ID: "mat-002", Name: "Common brick", Description: "Clay facing brick, 215x102.5x65mm",
				Extra: map[string]any{"unit": "each", "category": "masonry"}},
			{ID: "mat-003", Name: "Structural timber C24", Description: "Kiln-dried softwood for joists and studwork",
				Extra: map[string]any{"unit": "m", "category": "carpentry"}},
			{ID: "mat-004", Name: "Plasterboard 12.5mm", Description: "Standard gypsum wallboard in 2400x1200mm sheets",
				Extra: map[string]any{"unit": "sheet", "category": "finishes"}},
			{ID: "mat-005", Name: "Twin and earth cable 2.5mm²", Description: "PVC insulated copper cable for socket circuits",
				Extra: map[string]any{"unit": "m", "category": "electrical"}},
		}
	case model.CategoryTasks:
		return []model.ReferenceItem{
			{ID: "task-001", Name: "Site preparation", Description: "Clear vegetation, strip topsoil and set out the building footprint",
				Extra: map[string]any{"duration": "5 days", "predecessors": []any{}}},
			{ID: "task-002", Name: "Excavate foundations", Description: "Dig strip footings to the specified depth",
				Extra: map[string]any{"duration": "4 days", "predecessors": []any{"task-001"}}},
			{ID: "task-003", Name: "Pour concrete foundations", Description: "Place and compact ready-mix concrete in footings",
				Extra: map[string]any{"duration": "2 days", "predecessors": []any{"task-002"}}},
			{ID: "task-004", Name: "Brickwork to damp proof course", Description: "Build external walls to DPC level",
				Extra: map[string]any{"duration": "6 days", "predecessors": []any{"task-003"}}},
			{ID: "task-005", Name: "First fix electrical", Description: "Run cables and set back boxes before plastering",
				Extra: map[string]any{"duration": "5 days", "predecessors": []any{"task-004"}}},
		}
	case model.CategoryStages:
		return []model.ReferenceItem{
			{ID: "stage-001", Name: "Groundworks", Description: "Site clearance, excavation and drainage runs",
				Extra: map[string]any{"tasks": []any{"task-001", "task-002"}}},
			{ID: "stage-002", Name: "Substructure", Description: "Foundations and masonry up to damp proof course",
				Extra: map[string]any{"tasks": []any{"task-003", "task-004"}}},
			{ID: "stage-003", Name: "Superstructure", Description: "External walls, upper floors and roof structure",
				Extra: map[string]any{"tasks": []any{}}},
			{ID: "stage-004", Name: "First fix", Description: "Carpentry, plumbing and electrical before plaster",
				Extra: map[string]any{"tasks": []any{"task-005"}}},
			{ID: "stage-005", Name: "Second fix and finishes", Description: "Fittings, decoration and final connections",
				Extra: map[string]any{"tasks": []any{}}},
		}
	case model.CategoryRooms:
		return []model.ReferenceItem{
			{ID: "room-001", Name: "Kitchen", Description: "Food preparation area with plumbed appliances",
				Extra: map[string]any{"typical_dimensions": map[string]any{"length": "4.0m", "width": "3.5m", "height": "2.4m"}}},
			{ID: "room-002", Name: "Bathroom", Description: "Wet room with WC, basin and bath or shower",
				Extra: map[string]any{"typical_dimensions": map[string]any{"length": "2.5m", "width": "2.0m", "height": "2.4m"}}},
			{ID: "room-003", Name: "Bedroom", Description: "Sleeping quarters with natural light and ventilation",
				Extra: map[string]any{"typical_dimensions": map[string]any{"length": "4.0m", "width": "3.0m", "height": "2.4m"}}},
			{ID: "room-004", Name: "Living room", Description: "Primary habitable space",
				Extra: map[string]any{"typical_dimensions": map[string]any{"length": "5.0m", "width": "4.0m", "height": "2.4m"}}},
			{ID: "room-005", Name: "Hallway", Description: "Circulation space connecting habitable rooms",
				Extra: map[string]any{"typical_dimensions": map[string]any{"length": "3.0m", "width": "1.2m", "height": "2.4m"}}},
		}
	default:
		return nil
	}
}
