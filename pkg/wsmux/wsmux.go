// Package wsmux implements the per-workload WebSocket duplex session:
// console backlog replay, fan-in of live stats/log streams, and
// forwarding of inbound commands.
package wsmux

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nexus-wings/wings/pkg/console"
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/stats"
	"github.com/nexus-wings/wings/pkg/types"
)

// statsInterval is the minimum spacing between forwarded stat samples.
const statsInterval = 2 * time.Second

// logPollInterval is how often the log-follow task re-reads the
// container's captured log file for new lines.
const logPollInterval = 1 * time.Second

// CommandSender is the subset of the lifecycle engine the multiplexer
// needs to dispatch inbound commands.
type CommandSender interface {
	SendCommand(ctx context.Context, uuid, command string) error
}

// Multiplexer fans a single workload's console, stats, and log streams
// to one WebSocket connection and forwards inbound commands upstream.
type Multiplexer struct {
	adapter  runtime.Adapter
	consoles *console.Registry
	commands CommandSender
}

// New builds a Multiplexer.
func New(adapter runtime.Adapter, consoles *console.Registry, commands CommandSender) *Multiplexer {
	return &Multiplexer{adapter: adapter, consoles: consoles, commands: commands}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMsg struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundMsg struct {
	Command string `json:"command"`
}

// Serve upgrades r to a WebSocket and runs the session until the
// connection closes. Caller has already authenticated the request.
func (m *Multiplexer) Serve(w http.ResponseWriter, r *http.Request, uuid string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logger.Warn().Str("uuid", uuid).Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	out := make(chan outboundMsg, 32)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	buffer := m.consoles.GetOrCreate(uuid)
	for _, line := range buffer.Lines() {
		if err := conn.WriteJSON(outboundMsg{Type: "console", Data: line}); err != nil {
			return
		}
	}

	go m.statsTask(ctx, uuid, out)
	go m.logTask(ctx, uuid, buffer, out)
	go m.forwarder(ctx, conn, out, cancel)

	m.readLoop(ctx, conn, uuid)
	cancel()
}

func (m *Multiplexer) statsTask(ctx context.Context, uuid string, out chan<- outboundMsg) {
	name := types.ContainerName(uuid)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sample, err := m.adapter.StatsOnce(ctx, name, 0)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(statsInterval):
				continue
			}
		}
		select {
		case out <- outboundMsg{Type: "stats", Data: stats.Normalize(sample, 0)}:
		case <-ctx.Done():
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(statsInterval):
		}
	}
}

func (m *Multiplexer) logTask(ctx context.Context, uuid string, buffer *console.Buffer, out chan<- outboundMsg) {
	name := types.ContainerName(uuid)
	seen := 0
	ticker := time.NewTicker(logPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		lines, err := m.adapter.LogsTail(ctx, name, 1<<20)
		if err != nil || len(lines) <= seen {
			continue
		}
		for _, line := range lines[seen:] {
			buffer.Push(line)
			select {
			case out <- outboundMsg{Type: "console", Data: line}:
			case <-ctx.Done():
				return
			}
		}
		seen = len(lines)
	}
}

func (m *Multiplexer) forwarder(ctx context.Context, conn *websocket.Conn, out <-chan outboundMsg, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			if err := conn.WriteJSON(msg); err != nil {
				cancel()
				return
			}
		}
	}
}

func (m *Multiplexer) readLoop(ctx context.Context, conn *websocket.Conn, uuid string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inboundMsg
		if err := json.Unmarshal(data, &msg); err != nil || msg.Command == "" {
			continue
		}
		if err := m.commands.SendCommand(ctx, uuid, msg.Command); err != nil {
			log.Logger.Warn().Str("uuid", uuid).Err(err).Msg("failed to dispatch websocket command")
		}
	}
}
