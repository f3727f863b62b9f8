package model

import (
	"encoding/json"
	"time"
)

// Category identifies one of the four reference data collections.
type Category string

const (
	CategoryMaterials Category = "materials"
	CategoryTasks     Category = "tasks"
	CategoryStages    Category = "stages"
	CategoryRooms     Category = "rooms"
)

// Categories lists all reference categories in canonical order. Section
// ordering in generated context strings follows this slice.
var Categories = []Category{CategoryMaterials, CategoryTasks, CategoryStages, CategoryRooms}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMaterials, CategoryTasks, CategoryStages, CategoryRooms:
		return true
	}
	return false
}

// ReferenceItem is a single record within a category. Identity is the
// (category, id) pair. Category-specific fields (unit, duration,
// typical_dimensions, ...) are preserved in Extra so that write-through to
// the mock files never loses data the upstream API sent.
type ReferenceItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Extra       map[string]any `json:"-"`
}

// referenceItemCore mirrors the typed fields for two-pass decoding.
type referenceItemCore struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON decodes the typed fields and stashes everything else in Extra.
func (r *ReferenceItem) UnmarshalJSON(data []byte) error {
	var core referenceItemCore
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "id")
	delete(raw, "name")
	delete(raw, "description")

	r.ID = core.ID
	r.Name = core.Name
	r.Description = core.Description
	if len(raw) > 0 {
		r.Extra = raw
	} else {
		r.Extra = nil
	}
	return nil
}

// MarshalJSON folds Extra back alongside the typed fields.
func (r ReferenceItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+3)
	for k, v := range r.Extra {
		out[k] = v
	}
	out["id"] = r.ID
	out["name"] = r.Name
	if r.Description != "" {
		out["description"] = r.Description
	}
	return json.Marshal(out)
}

// StringFields returns the string-valued Extra fields. Used by relevance
// scoring, which awards +1 per non-name, non-description match.
func (r ReferenceItem) StringFields() map[string]string {
	if len(r.Extra) == 0 {
		return nil
	}
	out := make(map[string]string)
	for k, v := range r.Extra {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Bundle is one category's item list, the unit returned by a single
// reference fetch. Its wire form is the wrapped shape {"<category>": [...]}.
type Bundle struct {
	Category Category
	Items    []ReferenceItem
}

// MarshalJSON writes the wrapped form.
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]ReferenceItem{string(b.Category): b.Items})
}

// Snapshot aggregates all four categories plus fetch metadata. It is the
// process-wide reference state refreshed by the aggregate fetcher.
type Snapshot struct {
	Materials []ReferenceItem `json:"materials"`
	Tasks     []ReferenceItem `json:"tasks"`
	Stages    []ReferenceItem `json:"stages"`
	Rooms     []ReferenceItem `json:"rooms"`

	Timestamp time.Time `json:"timestamp"`
	// IsMock is true when at least one category fell back to local data.
	IsMock bool `json:"is_mock"`
	// PartialSuccess is true when at least one category succeeded and at
	// least one fell back. Total success and total fallback both report false.
	PartialSuccess bool   `json:"partial_success"`
	Error          string `json:"error,omitempty"`
}

// Items returns the item list for the given category.
func (s *Snapshot) Items(c Category) []ReferenceItem {
	if s == nil {
		return nil
	}
	switch c {
	case CategoryMaterials:
		return s.Materials
	case CategoryTasks:
		return s.Tasks
	case CategoryStages:
		return s.Stages
	case CategoryRooms:
		return s.Rooms
	}
	return nil
}

// SetItems replaces the item list for the given category.
func (s *Snapshot) SetItems(c Category, items []ReferenceItem) {
	switch c {
	case CategoryMaterials:
		s.Materials = items
	case CategoryTasks:
		s.Tasks = items
	case CategoryStages:
		s.Stages = items
	case CategoryRooms:
		s.Rooms = items
	}
}

// Empty reports whether every category is empty.
func (s *Snapshot) Empty() bool {
	if s == nil {
		return true
	}
	return len(s.Materials) == 0 && len(s.Tasks) == 0 && len(s.Stages) == 0 && len(s.Rooms) == 0
}
