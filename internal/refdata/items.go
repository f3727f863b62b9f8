package refdata

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/sanitize"
)

// decodeItems parses a reference payload for category. Both payload shapes
// the API and the mock files use are accepted: the wrapped form
// {"<category>": [...]} and a bare array. The body passes through the
// sanitizer first, so HTML error pages and repairable JSON are handled here
// rather than at every call site.
func decodeItems(category model.Category, body string) ([]model.ReferenceItem, error) {
	text, err := sanitize.CleanJSON(body)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: %s payload", category)
	}

	if strings.HasPrefix(strings.TrimSpace(text), "[") {
		var items []model.ReferenceItem
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, eris.Wrapf(err, "refdata: decode %s array", category)
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, eris.Wrapf(err, "refdata: decode %s object", category)
	}

	raw, ok := wrapped[string(category)]
	if !ok && len(wrapped) == 1 {
		// A single-key wrapper with a mismatched name still carries the items.
		for _, v := range wrapped {
			raw = v
			ok = true
		}
	}
	if !ok {
		return nil, eris.Errorf("refdata: %s payload has no item array", category)
	}

	var items []model.ReferenceItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, eris.Wrapf(err, "refdata: decode %s items", category)
	}
	return items, nil
}
