package refdata

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/config"
	"github.com/planvector/drawing-cli/internal/model"
)

// fakeClient serves canned per-category responses and counts calls.
type fakeClient struct {
	mu    sync.Mutex
	calls map[model.Category]int
	items map[model.Category][]model.ReferenceItem
	errs  map[model.Category]error
	delay time.Duration
}

func newFakeClient() *fakeClient {
	f := &fakeClient{
		calls: make(map[model.Category]int),
		items: make(map[model.Category][]model.ReferenceItem),
		errs:  make(map[model.Category]error),
	}
	for _, c := range model.Categories {
		f.items[c] = []model.ReferenceItem{{ID: string(c) + "-live", Name: "Live " + string(c)}}
	}
	return f
}

func (f *fakeClient) FetchCategory(_ context.Context, category model.Category) ([]model.ReferenceItem, error) {
	f.mu.Lock()
	f.calls[category]++
	items := f.items[category]
	err := f.errs[category]
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f *fakeClient) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newTestService(t *testing.T, client Client) *Service {
	t.Helper()
	cfg := config.ReferenceConfig{CacheTTLMins: 60}
	return NewService(cfg, client, NewMockStore(t.TempDir()))
}

func TestFetchAll_AllCategoriesSucceed(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	svc := newTestService(t, client)

	snap := svc.FetchAll(context.Background())

	assert.False(t, snap.IsMock)
	assert.False(t, snap.PartialSuccess)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.Timestamp.IsZero())
	for _, c := range model.Categories {
		items := snap.Items(c)
		require.Len(t, items, 1, c)
		assert.Equal(t, string(c)+"-live", items[0].ID)
	}
}

func TestFetchAll_OneCategoryFallsBack(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.errs[model.CategoryTasks] = eris.New("status 500")
	svc := newTestService(t, client)

	snap := svc.FetchAll(context.Background())

	assert.True(t, snap.IsMock)
	assert.True(t, snap.PartialSuccess)
	assert.Empty(t, snap.Error)

	// Tasks fell back to the seed dataset; the others kept live data.
	tasks := snap.Items(model.CategoryTasks)
	require.Len(t, tasks, 5)
	assert.Equal(t, "task-001", tasks[0].ID)
	assert.Equal(t, "materials-live", snap.Items(model.CategoryMaterials)[0].ID)
	assert.Equal(t, "stages-live", snap.Items(model.CategoryStages)[0].ID)
	assert.Equal(t, "rooms-live", snap.Items(model.CategoryRooms)[0].ID)
}

func TestFetchAll_TotalOutage(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	for _, c := range model.Categories {
		client.errs[c] = eris.New("connection refused")
	}
	svc := newTestService(t, client)

	snap := svc.FetchAll(context.Background())

	assert.True(t, snap.IsMock)
	assert.False(t, snap.PartialSuccess)
	assert.NotEmpty(t, snap.Error)
	for _, c := range model.Categories {
		assert.Len(t, snap.Items(c), 5, c)
	}
}

func TestFetchCategory_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	svc := newTestService(t, client)

	first, fallback := svc.FetchCategory(context.Background(), model.CategoryMaterials)
	require.False(t, fallback)
	second, fallback := svc.FetchCategory(context.Background(), model.CategoryMaterials)
	require.False(t, fallback)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.totalCalls())
}

func TestFetchCategory_RefetchesAfterTTL(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	svc := newTestService(t, client)

	current := time.Now()
	svc.now = func() time.Time { return current }

	svc.FetchCategory(context.Background(), model.CategoryMaterials)
	current = current.Add(61 * time.Minute)
	svc.FetchCategory(context.Background(), model.CategoryMaterials)

	assert.Equal(t, 2, client.totalCalls())
}

func TestFetchCategory_FallbackPrefersDiskOverSeeds(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.errs[model.CategoryRooms] = eris.New("timeout")

	store := NewMockStore(t.TempDir())
	custom := []model.ReferenceItem{{ID: "room-900", Name: "Server room"}}
	require.NoError(t, store.Save(model.CategoryRooms, custom))

	svc := NewService(config.ReferenceConfig{CacheTTLMins: 60}, client, store)

	items, fallback := svc.FetchCategory(context.Background(), model.CategoryRooms)
	assert.True(t, fallback)
	require.Len(t, items, 1)
	assert.Equal(t, "Server room", items[0].Name)
}

func TestFetchCategory_WriteThrough(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	store := NewMockStore(t.TempDir())
	svc := NewService(config.ReferenceConfig{CacheTTLMins: 60}, client, store)

	svc.FetchCategory(context.Background(), model.CategoryStages)

	// The live fetch landed on disk.
	items, err := store.Load(model.CategoryStages)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "stages-live", items[0].ID)
}

func TestFetchCategory_UseMockSkipsNetwork(t *testing.T) {
	t.Parallel()

	cfg := config.ReferenceConfig{CacheTTLMins: 60, UseMock: true}
	// A nil client panics if touched, so this doubles as a no-network check.
	svc := NewService(cfg, nil, NewMockStore(t.TempDir()))

	items, fallback := svc.FetchCategory(context.Background(), model.CategoryMaterials)
	assert.True(t, fallback)
	assert.Len(t, items, 5)

	snap := svc.FetchAll(context.Background())
	assert.True(t, snap.IsMock)
	assert.False(t, snap.PartialSuccess)
}

func TestSnapshot_SharesInFlightRefresh(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.delay = 30 * time.Millisecond
	svc := newTestService(t, client)

	var wg sync.WaitGroup
	start := make(chan struct{})
	snaps := make([]*model.Snapshot, 10)
	for i := range snaps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			snaps[i] = svc.Snapshot(context.Background())
		}()
	}
	close(start)
	wg.Wait()

	// One refresh for all callers: exactly one call per category.
	assert.Equal(t, len(model.Categories), client.totalCalls())
	for _, s := range snaps {
		require.NotNil(t, s)
		assert.False(t, s.Empty())
	}
}

func TestSnapshot_ReturnsCachedWhenFresh(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	svc := newTestService(t, client)

	first := svc.Snapshot(context.Background())
	second := svc.Snapshot(context.Background())

	assert.Same(t, first, second)
	assert.Equal(t, len(model.Categories), client.totalCalls())
}

func TestSnapshot_RefreshesWhenStale(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	svc := newTestService(t, client)

	current := time.Now()
	svc.now = func() time.Time { return current }

	first := svc.Snapshot(context.Background())
	current = current.Add(2 * time.Hour)
	second := svc.Snapshot(context.Background())

	assert.NotSame(t, first, second)
	assert.Equal(t, 2*len(model.Categories), client.totalCalls())
}

func TestRefresh_BypassesCache(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	svc := newTestService(t, client)

	svc.Snapshot(context.Background())
	snap := svc.Refresh(context.Background())

	require.NotNil(t, snap)
	assert.Equal(t, 2*len(model.Categories), client.totalCalls())
}
