package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-wings/wings/pkg/console"
	"github.com/nexus-wings/wings/pkg/events"
	"github.com/nexus-wings/wings/pkg/network"
	"github.com/nexus-wings/wings/pkg/registry"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/stats"
	"github.com/nexus-wings/wings/pkg/types"
)

// stubAdapter is a runtime.Adapter test double whose per-container
// status is driven explicitly by the test.
type stubAdapter struct {
	mu       sync.Mutex
	statuses map[string]string
	created  map[string]bool
	removed  map[string]bool
}

func newStubAdapter() *stubAdapter {
	return &stubAdapter{
		statuses: make(map[string]string),
		created:  make(map[string]bool),
		removed:  make(map[string]bool),
	}
}

func (s *stubAdapter) Version(ctx context.Context) (string, error) { return "stub", nil }
func (s *stubAdapter) EnsureNetwork(ctx context.Context) error     { return nil }
func (s *stubAdapter) PullImage(ctx context.Context, image string) error { return nil }

func (s *stubAdapter) CreateContainer(ctx context.Context, spec runtime.ContainerSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created[spec.ID] = true
	s.statuses[spec.ID] = "created"
	return nil
}

func (s *stubAdapter) Start(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = "running"
	return nil
}

func (s *stubAdapter) Stop(ctx context.Context, id string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = "exited"
	return nil
}

func (s *stubAdapter) Kill(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = "exited"
	return nil
}

func (s *stubAdapter) Restart(ctx context.Context, id string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = "running"
	return nil
}

func (s *stubAdapter) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed[id] = true
	delete(s.statuses, id)
	return nil
}

func (s *stubAdapter) WaitExit(ctx context.Context, id string) (uint32, error) { return 0, nil }

func (s *stubAdapter) InspectStatus(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[id]
	if !ok {
		return "", assertNotFoundErr
	}
	return st, nil
}

func (s *stubAdapter) ContainerIP(ctx context.Context, id string) (string, error) {
	return "10.88.0.5", nil
}

func (s *stubAdapter) StatsOnce(ctx context.Context, id string, diskBytes uint64) (stats.RawSample, error) {
	return stats.RawSample{MemoryUsageBytes: 100}, nil
}

func (s *stubAdapter) UpdateResources(ctx context.Context, id string, mem, nano int64) error {
	return nil
}

func (s *stubAdapter) Exec(ctx context.Context, id string, command []string) error { return nil }

func (s *stubAdapter) LogsTail(ctx context.Context, id string, maxLines int) ([]string, error) {
	return nil, nil
}

func (s *stubAdapter) ListManaged(ctx context.Context) ([]runtime.ManagedContainer, error) {
	return nil, nil
}

func (s *stubAdapter) Close() error { return nil }

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var assertNotFoundErr = notFoundErr{}

func testEngine(t *testing.T, adapter runtime.Adapter) (*Engine, string) {
	dataDir := t.TempDir()
	eng := New(Config{
		Adapter:  adapter,
		Registry: registry.New(dataDir),
		Consoles: console.NewRegistry(),
		Bus:      events.NewBus(),
		Ports:    network.NewPortPublisher(),
		DataDir:  dataDir,
	})
	return eng, dataDir
}

func testSpec(uuid string) types.WorkloadSpec {
	return types.WorkloadSpec{
		UUID:             uuid,
		Image:            "alpine:3",
		StartupCommand:   "/bin/sh -c sleep 3600",
		MemoryLimitBytes: 64 * 1024 * 1024,
		CPULimitNanoCPUs: 500_000_000,
	}
}

func TestCreateStoresSpecAndCreatesContainer(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)

	id, err := eng.Create(context.Background(), testSpec("uuid-1"), "", "")
	require.NoError(t, err)
	assert.Equal(t, "nexus-uuid-1", id)
	assert.True(t, adapter.created["nexus-uuid-1"])

	spec, ok := eng.registry.Get("uuid-1")
	require.True(t, ok)
	assert.Contains(t, spec.VolumePath, "uuid-1")
}

func TestPowerStartRecreatesMissingContainerFromRegistry(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)
	eng.registry.Store(testSpec("uuid-2"))

	err := eng.PowerAction(context.Background(), "uuid-2", types.PowerStart)
	require.NoError(t, err)
	assert.True(t, adapter.created["nexus-uuid-2"])
	assert.Equal(t, "running", adapter.statuses["nexus-uuid-2"])
}

func TestPowerStartWithoutSpecIsNotFound(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)

	err := eng.PowerAction(context.Background(), "never-created", types.PowerStart)
	require.Error(t, err)
}

func TestPowerStopRunsInBackgroundAndEmitsEvent(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)
	eng.registry.Store(testSpec("uuid-3"))
	adapter.statuses["nexus-uuid-3"] = "running"

	err := eng.PowerAction(context.Background(), "uuid-3", types.PowerStop)
	require.NoError(t, err)

	select {
	case ev := <-eng.bus.Events():
		assert.Equal(t, "uuid-3", ev.UUID)
		assert.Equal(t, types.EventStateChanged, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for StateChanged event")
	}
}

func TestDeleteRemovesContainerConsoleAndSpec(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)
	eng.registry.Store(testSpec("uuid-4"))
	adapter.statuses["nexus-uuid-4"] = "running"
	eng.consoles.GetOrCreate("uuid-4").Push("hello")

	require.NoError(t, eng.Delete(context.Background(), "uuid-4", false))

	assert.True(t, adapter.removed["nexus-uuid-4"])
	_, ok := eng.registry.Get("uuid-4")
	assert.False(t, ok)
}

func TestDeleteWithRemoveVolumesDropsDataDir(t *testing.T) {
	adapter := newStubAdapter()
	eng, dataDir := testEngine(t, adapter)

	_, err := eng.Create(context.Background(), testSpec("uuid-rm"), "", "")
	require.NoError(t, err)

	require.NoError(t, eng.Delete(context.Background(), "uuid-rm", true))

	_, statErr := os.Stat(filepath.Join(dataDir, "uuid-rm"))
	assert.True(t, os.IsNotExist(statErr))
}

// serializingAdapter fails the test if two power operations for the same
// container ever overlap.
type serializingAdapter struct {
	*stubAdapter
	t        *testing.T
	inFlight int32
}

func (s *serializingAdapter) Restart(ctx context.Context, id string, timeout time.Duration) error {
	if atomic.AddInt32(&s.inFlight, 1) > 1 {
		s.t.Error("concurrent restart observed for the same container")
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.inFlight, -1)
	return s.stubAdapter.Restart(ctx, id, timeout)
}

func TestConcurrentPowerActionsAreSerialized(t *testing.T) {
	adapter := &serializingAdapter{stubAdapter: newStubAdapter(), t: t}
	eng, _ := testEngine(t, adapter)
	eng.registry.Store(testSpec("uuid-conc"))
	adapter.statuses["nexus-uuid-conc"] = "running"

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, eng.PowerAction(context.Background(), "uuid-conc", types.PowerRestart))
		}()
	}
	wg.Wait()

	// Background restarts drain one at a time; give them room to finish.
	deadline := time.After(2 * time.Second)
	for i := 0; i < 10; i++ {
		select {
		case <-eng.bus.Events():
		case <-deadline:
			t.Fatal("timed out waiting for restart events")
		}
	}
	assert.Equal(t, "running", adapter.statuses["nexus-uuid-conc"])
}

func TestUpdateResourcesConvertsUnitsAndPersistsSpec(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)
	eng.registry.Store(testSpec("uuid-5"))

	require.NoError(t, eng.UpdateResources(context.Background(), "uuid-5", 256, 20, 1024))

	spec, ok := eng.registry.Get("uuid-5")
	require.True(t, ok)
	assert.EqualValues(t, 256*1024*1024, spec.MemoryLimitBytes)
	assert.EqualValues(t, 200_000_000, spec.CPULimitNanoCPUs)
}

func TestGetStatusReturnsResourcesWhenRunning(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)
	adapter.statuses["nexus-uuid-6"] = "running"

	status, err := eng.GetStatus(context.Background(), "uuid-6")
	require.NoError(t, err)
	assert.Equal(t, types.StateRunning, status.State)
	require.NotNil(t, status.Resources)
}

func TestGetStatusNotFoundWhenContainerMissing(t *testing.T) {
	adapter := newStubAdapter()
	eng, _ := testEngine(t, adapter)

	_, err := eng.GetStatus(context.Background(), "missing")
	assert.Error(t, err)
}
