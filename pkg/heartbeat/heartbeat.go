// Package heartbeat periodically pushes node and per-workload state to
// the Panel.
package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/runtime"
)

// Interval is the push cadence.
const Interval = 30 * time.Second

// cpuSampleGap is the spacing between the two /proc/stat samples used
// to compute a CPU percentage.
const cpuSampleGap = 100 * time.Millisecond

const requestTimeout = 10 * time.Second

type serverState struct {
	UUID  string `json:"uuid"`
	State string `json:"state"`
}

type payload struct {
	Version     string        `json:"version"`
	TotalMemory uint64        `json:"total_memory"`
	UsedMemory  uint64        `json:"used_memory"`
	TotalDisk   uint64        `json:"total_disk"`
	UsedDisk    uint64        `json:"used_disk"`
	CPUPercent  float64       `json:"cpu_percent"`
	Servers     []serverState `json:"servers"`
}

// Heartbeat periodically posts node telemetry to the Panel.
type Heartbeat struct {
	adapter    runtime.Adapter
	httpClient *http.Client
	panelURL   string
	bearer     string
	dataDir    string
	version    string
}

// New builds a Heartbeat. bearer is the already-formatted
// "<token_id>.<token>" (or bare token) value used as the Authorization
// header.
func New(adapter runtime.Adapter, panelURL, bearer, dataDir, version string) *Heartbeat {
	return &Heartbeat{
		adapter:    adapter,
		httpClient: &http.Client{Timeout: requestTimeout},
		panelURL:   panelURL,
		bearer:     bearer,
		dataDir:    dataDir,
		version:    version,
	}
}

// Run ticks every Interval until ctx is cancelled, pushing one heartbeat
// per tick. Send failures are logged and otherwise ignored.
func (h *Heartbeat) Run(ctx context.Context) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Logger.Info().Msg("heartbeat task shutting down")
			return
		case <-ticker.C:
			if err := h.sendOnce(ctx); err != nil {
				log.Logger.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (h *Heartbeat) sendOnce(ctx context.Context) error {
	memTotal, memUsed := MemoryUsage()
	diskTotal, diskUsed := DiskUsage(h.dataDir)
	cpuPercent := CPUPercent(ctx)

	var servers []serverState
	managed, err := h.adapter.ListManaged(ctx)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("failed to list containers for heartbeat")
	} else {
		servers = make([]serverState, 0, len(managed))
		for _, c := range managed {
			servers = append(servers, serverState{UUID: c.UUID, State: c.RawState})
		}
	}

	body := payload{
		Version:     h.version,
		TotalMemory: memTotal,
		UsedMemory:  memUsed,
		TotalDisk:   diskTotal,
		UsedDisk:    diskUsed,
		CPUPercent:  cpuPercent,
		Servers:     servers,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal heartbeat payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/nodes/heartbeat", trimTrailingSlash(h.panelURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build heartbeat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	defer resp.Body.Close()
	return nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// MemoryUsage returns (total, used) bytes from /proc/meminfo.
func MemoryUsage() (uint64, uint64) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, 0
	}
	info, err := fs.Meminfo()
	if err != nil || info.MemTotal == nil {
		return 0, 0
	}
	total := *info.MemTotal * 1024
	var available uint64
	if info.MemAvailable != nil {
		available = *info.MemAvailable * 1024
	}
	if available > total {
		return total, 0
	}
	return total, total - available
}

// DiskUsage returns (total, used) bytes for the filesystem backing path.
func DiskUsage(path string) (uint64, uint64) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	if free > total {
		return total, 0
	}
	return total, total - free
}

// CPUPercent samples /proc/stat twice, cpuSampleGap apart, and returns
// whole-node CPU utilization as a percentage.
func CPUPercent(ctx context.Context) float64 {
	idle1, total1, ok := sampleCPU()
	if !ok {
		return 0
	}
	select {
	case <-ctx.Done():
		return 0
	case <-time.After(cpuSampleGap):
	}
	idle2, total2, ok := sampleCPU()
	if !ok {
		return 0
	}

	idleDelta := idle2 - idle1
	totalDelta := total2 - total1
	if totalDelta <= 0 {
		return 0
	}
	return ((totalDelta - idleDelta) / totalDelta) * 100.0
}

func sampleCPU() (idle, total float64, ok bool) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, 0, false
	}
	st, err := fs.Stat()
	if err != nil {
		return 0, 0, false
	}
	c := st.CPUTotal
	idle = c.Idle
	total = c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
	return idle, total, true
}

// UptimeSeconds returns the node's uptime derived from the kernel boot
// time, 0 if procfs is unavailable.
func UptimeSeconds() uint64 {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0
	}
	st, err := fs.Stat()
	if err != nil || st.BootTime == 0 {
		return 0
	}
	now := uint64(time.Now().Unix())
	if now <= st.BootTime {
		return 0
	}
	return now - st.BootTime
}
