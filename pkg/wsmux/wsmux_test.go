package wsmux

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-wings/wings/pkg/console"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/stats"
)

type stubAdapter struct {
	mu   sync.Mutex
	logs []string
}

func (s *stubAdapter) Version(ctx context.Context) (string, error)       { return "", nil }
func (s *stubAdapter) EnsureNetwork(ctx context.Context) error           { return nil }
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
func (s *stubAdapter) Remove(ctx context.Context, id string) error             { return nil }
func (s *stubAdapter) WaitExit(ctx context.Context, id string) (uint32, error) { return 0, nil }
func (s *stubAdapter) InspectStatus(ctx context.Context, id string) (string, error) {
	return "running", nil
}
func (s *stubAdapter) ContainerIP(ctx context.Context, id string) (string, error) { return "", nil }
func (s *stubAdapter) StatsOnce(ctx context.Context, id string, diskBytes uint64) (stats.RawSample, error) {
	return stats.RawSample{MemoryUsageBytes: 7}, nil
}
func (s *stubAdapter) UpdateResources(ctx context.Context, id string, mem, nano int64) error {
	return nil
}
func (s *stubAdapter) Exec(ctx context.Context, id string, command []string) error { return nil }
func (s *stubAdapter) LogsTail(ctx context.Context, id string, maxLines int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out, nil
}
func (s *stubAdapter) ListManaged(ctx context.Context) ([]runtime.ManagedContainer, error) {
	return nil, nil
}
func (s *stubAdapter) Close() error { return nil }

type recordingSender struct {
	mu       sync.Mutex
	commands []string
}

func (r *recordingSender) SendCommand(ctx context.Context, uuid, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	return nil
}

func dialSession(t *testing.T, adapter *stubAdapter, sender *recordingSender, consoles *console.Registry) *websocket.Conn {
	t.Helper()
	mux := New(adapter, consoles, sender)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.Serve(w, r, "uuid-ws")
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSessionReplaysConsoleBacklog(t *testing.T) {
	adapter := &stubAdapter{}
	consoles := console.NewRegistry()
	buf := consoles.GetOrCreate("uuid-ws")
	buf.Push("boot line 1")
	buf.Push("boot line 2")

	conn := dialSession(t, adapter, &recordingSender{}, consoles)

	var got []string
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "console", msg.Type)
		got = append(got, msg.Data)
	}
	assert.Equal(t, []string{"boot line 1", "boot line 2"}, got)
}

func TestInboundCommandFrameIsDispatched(t *testing.T) {
	adapter := &stubAdapter{}
	sender := &recordingSender{}
	conn := dialSession(t, adapter, sender, console.NewRegistry())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"say hello"}`)))

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.commands) == 1 && sender.commands[0] == "say hello"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNonCommandFramesAreIgnored(t *testing.T) {
	adapter := &stubAdapter{}
	sender := &recordingSender{}
	conn := dialSession(t, adapter, sender, console.NewRegistry())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"other":"field"}`)))

	time.Sleep(100 * time.Millisecond)
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Empty(t, sender.commands)
}
