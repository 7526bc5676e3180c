package heartbeat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/stats"
)

type stubAdapter struct {
	managed []runtime.ManagedContainer
}

func (s *stubAdapter) Version(ctx context.Context) (string, error) { return "", nil }
func (s *stubAdapter) EnsureNetwork(ctx context.Context) error     { return nil }
func (s *stubAdapter) PullImage(ctx context.Context, image string) error { return nil }
func (s *stubAdapter) CreateContainer(ctx context.Context, spec runtime.ContainerSpec) error {
	return nil
}
func (s *stubAdapter) Start(ctx context.Context, id string) error { return nil }
func (s *stubAdapter) Stop(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (s *stubAdapter) Kill(ctx context.Context, id string) error { return nil }
func (s *stubAdapter) Restart(ctx context.Context, id string, timeout time.Duration) error {
	return nil
}
func (s *stubAdapter) Remove(ctx context.Context, id string) error { return nil }
func (s *stubAdapter) WaitExit(ctx context.Context, id string) (uint32, error) { return 0, nil }
func (s *stubAdapter) InspectStatus(ctx context.Context, id string) (string, error) {
	return "running", nil
}
func (s *stubAdapter) ContainerIP(ctx context.Context, id string) (string, error) { return "", nil }
func (s *stubAdapter) StatsOnce(ctx context.Context, id string, diskBytes uint64) (stats.RawSample, error) {
	return stats.RawSample{}, nil
}
func (s *stubAdapter) UpdateResources(ctx context.Context, id string, mem, nano int64) error {
	return nil
}
func (s *stubAdapter) Exec(ctx context.Context, id string, command []string) error { return nil }
func (s *stubAdapter) LogsTail(ctx context.Context, id string, maxLines int) ([]string, error) {
	return nil, nil
}
func (s *stubAdapter) ListManaged(ctx context.Context) ([]runtime.ManagedContainer, error) {
	return s.managed, nil
}
func (s *stubAdapter) Close() error { return nil }

func TestSendOnceIncludesServersAndAuth(t *testing.T) {
	var gotAuth string
	var gotBody payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/api/v1/nodes/heartbeat", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter := &stubAdapter{managed: []runtime.ManagedContainer{{UUID: "u1", RawState: "running"}}}
	hb := New(adapter, srv.URL, "tok.id", t.TempDir(), "1.0.0")

	require.NoError(t, hb.sendOnce(context.Background()))
	assert.Equal(t, "Bearer tok.id", gotAuth)
	assert.Equal(t, "1.0.0", gotBody.Version)
	require.Len(t, gotBody.Servers, 1)
	assert.Equal(t, "u1", gotBody.Servers[0].UUID)
}

func TestTrimTrailingSlash(t *testing.T) {
	assert.Equal(t, "http://panel", trimTrailingSlash("http://panel/"))
	assert.Equal(t, "http://panel", trimTrailingSlash("http://panel"))
}
