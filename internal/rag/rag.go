// Package rag assembles prompt context from reference data: a flat context
// block for LLM prompt injection and a relevance-ranked subset of items for
// free-text retrieval.
package rag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/planvector/drawing-cli/internal/model"
)

// ContextString renders a snapshot as a Markdown-like block with one section
// per non-empty category in canonical order. Items keep their source order.
// A nil or empty snapshot renders as an empty string.
func ContextString(snap *model.Snapshot) string {
	if snap == nil {
		return ""
	}

	var sections []string
	for _, category := range model.Categories {
		items := snap.Items(category)
		if len(items) == 0 {
			continue
		}

		var b strings.Builder
		b.WriteString("## ")
		b.WriteString(strings.ToUpper(string(category)))
		for _, item := range items {
			desc := item.Description
			if desc == "" {
				desc = "No description"
			}
			fmt.Fprintf(&b, "\n- %s: %s (%s)", item.Name, desc, suffix(category, item))
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}

// suffix picks the category-specific detail appended to each context line.
// Items missing the expected field fall back to their ID.
func suffix(category model.Category, item model.ReferenceItem) string {
	switch category {
	case model.CategoryMaterials:
		if unit, ok := item.Extra["unit"].(string); ok && unit != "" {
			return "Unit: " + unit
		}
	case model.CategoryTasks:
		if duration, ok := item.Extra["duration"].(string); ok && duration != "" {
			return "Duration: " + duration
		}
	case model.CategoryStages:
		if tasks, ok := item.Extra["tasks"].([]any); ok {
			return fmt.Sprintf("Tasks: %d", len(tasks))
		}
	case model.CategoryRooms:
		if dims, ok := item.Extra["typical_dimensions"].(map[string]any); ok {
			l, _ := dims["length"].(string)
			w, _ := dims["width"].(string)
			h, _ := dims["height"].(string)
			if l != "" || w != "" || h != "" {
				return fmt.Sprintf("Typical: %s x %s x %s", l, w, h)
			}
		}
	}
	return "ID: " + item.ID
}

// Relevant holds the top-scoring items per category for a query.
type Relevant struct {
	Materials []model.ReferenceItem `json:"materials"`
	Tasks     []model.ReferenceItem `json:"tasks"`
	Stages    []model.ReferenceItem `json:"stages"`
	Rooms     []model.ReferenceItem `json:"rooms"`
}

// FindRelevant scores every item against the query terms and keeps the top
// limit per category, dropping zero scores. The sort is stable, so equal
// scores keep their source order and the cut at limit is deterministic. An
// empty query or nil snapshot yields four empty lists.
func FindRelevant(query string, snap *model.Snapshot, limit int) Relevant {
	rel := Relevant{
		Materials: []model.ReferenceItem{},
		Tasks:     []model.ReferenceItem{},
		Stages:    []model.ReferenceItem{},
		Rooms:     []model.ReferenceItem{},
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || snap == nil {
		return rel
	}
	if limit <= 0 {
		limit = 5
	}

	for _, category := range model.Categories {
		top := rank(snap.Items(category), terms, limit)
		switch category {
		case model.CategoryMaterials:
			rel.Materials = top
		case model.CategoryTasks:
			rel.Tasks = top
		case model.CategoryStages:
			rel.Stages = top
		case model.CategoryRooms:
			rel.Rooms = top
		}
	}
	return rel
}

type scored struct {
	item  model.ReferenceItem
	score int
}

func rank(items []model.ReferenceItem, terms []string, limit int) []model.ReferenceItem {
	ranked := make([]scored, 0, len(items))
	for _, item := range items {
		if s := scoreItem(item, terms); s > 0 {
			ranked = append(ranked, scored{item: item, score: s})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]model.ReferenceItem, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

// scoreItem sums term-overlap weights over all terms: 3 for a name hit, 2
// for a description hit, 1 per hit in any other string field (the ID
// included).
func scoreItem(item model.ReferenceItem, terms []string) int {
	name := strings.ToLower(item.Name)
	desc := strings.ToLower(item.Description)
	id := strings.ToLower(item.ID)
	others := item.StringFields()

	var score int
	for _, term := range terms {
		if name != "" && strings.Contains(name, term) {
			score += 3
		}
		if desc != "" && strings.Contains(desc, term) {
			score += 2
		}
		if id != "" && strings.Contains(id, term) {
			score++
		}
		for _, v := range others {
			if strings.Contains(strings.ToLower(v), term) {
				score++
			}
		}
	}
	return score
}
