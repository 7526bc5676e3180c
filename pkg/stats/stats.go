// Package stats normalizes raw cgroup/runtime stat samples into the
// uniform ResourceSample record the Panel and WebSocket clients consume.
package stats

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-wings/wings/pkg/types"
)

// RawSample holds the two-point CPU delta inputs plus the instantaneous
// memory/network readings a single cgroup snapshot pair yields. Field
// names mirror the Docker-shaped stats document the Panel historically
// consumed (cpu.total_usage / precpu.total_usage / system_cpu_usage /
// precpu.system_cpu_usage / percpu_usage), populated here from two
// successive containerd cgroup metrics reads.
type RawSample struct {
	CPUTotalUsage      uint64
	PreCPUTotalUsage   uint64
	SystemCPUUsage     uint64
	PreSystemCPUUsage  uint64
	PerCPUUsageLen     int // 0 means "not present" -> treated as 1 logical CPU
	MemoryUsageBytes   uint64
	MemoryLimitBytes   uint64
	NetRxBytes         uint64
	NetTxBytes         uint64
}

// CPUPercent computes the normalized CPU percentage from a raw sample.
// Non-positive deltas (the very first sample for a
// container, or a clock anomaly) yield exactly 0, never negative or NaN.
func CPUPercent(r RawSample) float64 {
	cpuDelta := float64(r.CPUTotalUsage) - float64(r.PreCPUTotalUsage)
	systemDelta := float64(r.SystemCPUUsage) - float64(r.PreSystemCPUUsage)
	if systemDelta <= 0 || cpuDelta <= 0 {
		return 0.0
	}
	nCPUs := float64(1)
	if r.PerCPUUsageLen > 0 {
		nCPUs = float64(r.PerCPUUsageLen)
	}
	return (cpuDelta / systemDelta) * nCPUs * 100.0
}

// Normalize converts a raw sample plus a caller-supplied disk usage
// figure into the ResourceSample record forwarded to the Panel and
// WebSocket clients. diskBytes is 0 in the pure stream; the lifecycle
// engine's status path supplies a volume-walk total.
func Normalize(r RawSample, diskBytes uint64) types.ResourceSample {
	return types.ResourceSample{
		CPUPercent:       CPUPercent(r),
		MemoryBytes:      r.MemoryUsageBytes,
		MemoryLimitBytes: r.MemoryLimitBytes,
		NetRxBytes:       r.NetRxBytes,
		NetTxBytes:       r.NetTxBytes,
		DiskBytes:        diskBytes,
		Timestamp:        time.Now().UTC(),
	}
}

// DirSize walks root and sums the size of every regular file, matching
// the Panel's disk-usage accounting for a workload's volume. Unreadable
// entries are skipped rather than aborting the walk.
func DirSize(root string) uint64 {
	var total uint64
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}
