package refdata

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/model"
)

// MockStore reads and writes the on-disk fallback files, one JSON file per
// category. Every successful API fetch is written through here, so the local
// data self-updates opportunistically and stays useful across outages.
type MockStore struct {
	dir string
}

// NewMockStore creates a store rooted at dir. The directory is created on
// first write.
func NewMockStore(dir string) *MockStore {
	return &MockStore{dir: dir}
}

func (s *MockStore) wrappedPath(category model.Category) string {
	return filepath.Join(s.dir, string(category)+".json")
}

func (s *MockStore) rawPath(category model.Category) string {
	return filepath.Join(s.dir, string(category)+"_raw.json")
}

// Load reads the fallback file for a category. The wrapped variant
// ({"<category>": [...]}) wins over the raw variant (bare array); either
// file may hold either shape, decoding normalizes both.
func (s *MockStore) Load(category model.Category) ([]model.ReferenceItem, error) {
	for _, path := range []string{s.wrappedPath(category), s.rawPath(category)} {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, eris.Wrapf(err, "refdata: read %s", path)
		}

		items, err := decodeItems(category, string(data))
		if err != nil {
			zap.L().Warn("unreadable mock file skipped",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		return items, nil
	}
	return nil, eris.Errorf("refdata: no mock file for %s", category)
}

// LoadOrSeed never fails: when no usable file exists the built-in seed data
// is returned and written back so the next load finds a file.
func (s *MockStore) LoadOrSeed(category model.Category) []model.ReferenceItem {
	if items, err := s.Load(category); err == nil && len(items) > 0 {
		return items
	}

	items := Seed(category)
	if err := s.Save(category, items); err != nil {
		zap.L().Warn("seed write-back failed",
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}
	return items
}

// Save writes the wrapped form with 2-space indentation for hand editing.
func (s *MockStore) Save(category model.Category, items []model.ReferenceItem) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrapf(err, "refdata: create dir %s", s.dir)
	}

	data, err := json.MarshalIndent(model.Bundle{Category: category, Items: items}, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "refdata: marshal %s", category)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.wrappedPath(category), data, 0o644); err != nil {
		return eris.Wrapf(err, "refdata: write %s", s.wrappedPath(category))
	}
	return nil
}
