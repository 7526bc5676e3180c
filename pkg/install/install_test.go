package install

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/stats"
	"github.com/nexus-wings/wings/pkg/types"
)

// fakeAdapter is a minimal runtime.Adapter stub exercising only the
// calls the install pipeline makes.
type fakeAdapter struct {
	created  int32
	started  int32
	removed  int32
	exitCode uint32
	logs     []string
}

func (f *fakeAdapter) Version(ctx context.Context) (string, error) { return "fake", nil }
func (f *fakeAdapter) EnsureNetwork(ctx context.Context) error     { return nil }
func (f *fakeAdapter) PullImage(ctx context.Context, image string) error {
	return nil
}
func (f *fakeAdapter) CreateContainer(ctx context.Context, spec runtime.ContainerSpec) error {
	atomic.AddInt32(&f.created, 1)
	return nil
}
func (f *fakeAdapter) Start(ctx context.Context, id string) error {
	atomic.AddInt32(&f.started, 1)
	return nil
}
func (f *fakeAdapter) Stop(ctx context.Context, id string, timeout time.Duration) error { return nil }
func (f *fakeAdapter) Kill(ctx context.Context, id string) error                        { return nil }
func (f *fakeAdapter) Restart(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (f *fakeAdapter) Remove(ctx context.Context, id string) error {
	atomic.AddInt32(&f.removed, 1)
	return nil
}
func (f *fakeAdapter) WaitExit(ctx context.Context, id string) (uint32, error) {
	return f.exitCode, nil
}
func (f *fakeAdapter) InspectStatus(ctx context.Context, id string) (string, error) {
	return "exited", nil
}
func (f *fakeAdapter) ContainerIP(ctx context.Context, id string) (string, error) { return "", nil }
func (f *fakeAdapter) StatsOnce(ctx context.Context, id string, diskBytes uint64) (stats.RawSample, error) {
	return stats.RawSample{}, nil
}
func (f *fakeAdapter) UpdateResources(ctx context.Context, id string, mem, nano int64) error {
	return nil
}
func (f *fakeAdapter) Exec(ctx context.Context, id string, command []string) error { return nil }
func (f *fakeAdapter) LogsTail(ctx context.Context, id string, maxLines int) ([]string, error) {
	return f.logs, nil
}
func (f *fakeAdapter) ListManaged(ctx context.Context) ([]runtime.ManagedContainer, error) {
	return nil, nil
}
func (f *fakeAdapter) Close() error { return nil }

func testSpec() types.WorkloadSpec {
	return types.WorkloadSpec{UUID: "abc-123", VolumePath: "/data/abc-123"}
}

func TestRunSuccessReturnsLogsAndNotifiesPanel(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := &fakeAdapter{logs: []string{"line1", "line2"}}
	req := Request{
		Spec:         testSpec(),
		Script:       "echo hi",
		InstallImage: "alpine:3",
		PanelURL:     srv.URL,
		PanelAuth:    "tok",
	}

	lines, err := Run(context.Background(), adapter, http.DefaultClient, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2"}, lines)
	assert.EqualValues(t, 1, adapter.created)
	assert.EqualValues(t, 1, adapter.started)
	// Leftover cleanup before create, plus the final removal.
	assert.EqualValues(t, 2, adapter.removed)
	assert.Contains(t, string(gotBody), `"status":"success"`)
}

func TestRunFailureNotifiesPanelWithLogTail(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := &fakeAdapter{exitCode: 7, logs: []string{"step 1", "boom"}}
	req := Request{
		Spec:         testSpec(),
		Script:       "exit 7",
		InstallImage: "alpine:3",
		PanelURL:     srv.URL,
		PanelAuth:    "tok",
	}

	_, err := Run(context.Background(), adapter, http.DefaultClient, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "7")
	assert.Equal(t, "/api/v1/servers/abc-123/install-status", gotPath)
	assert.Equal(t, "failed", gotBody["status"])
	assert.Contains(t, gotBody["message"], "boom")
	// Install container is removed even on failure (leftover cleanup
	// before create, plus the final removal).
	assert.EqualValues(t, 2, adapter.removed)
}

func TestRunWithoutPanelCredentialsSkipsNotify(t *testing.T) {
	adapter := &fakeAdapter{}
	req := Request{Spec: testSpec(), Script: "true", InstallImage: "alpine:3"}

	_, err := Run(context.Background(), adapter, http.DefaultClient, req)
	assert.NoError(t, err)
}
