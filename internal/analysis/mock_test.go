package analysis

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/refdata"
	"github.com/planvector/drawing-cli/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Reference client stub ---

// stubRefClient serves one live item per category so snapshots never fall
// back during pipeline tests.
type stubRefClient struct{}

func (stubRefClient) FetchCategory(_ context.Context, category model.Category) ([]model.ReferenceItem, error) {
	return []model.ReferenceItem{{
		ID:          string(category) + "-1",
		Name:        "Reference " + string(category),
		Description: "Live item for " + string(category),
	}}, nil
}

// --- Ensure interface compliance ---
var (
	_ anthropic.Client = (*mockAnthropicClient)(nil)
	_ refdata.Client   = (stubRefClient{})
)
