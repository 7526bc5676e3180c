// Package runtime wraps the containerd client API behind an Adapter
// interface so the lifecycle engine never imports containerd directly.
package runtime

import (
	"context"
	"time"

	"github.com/nexus-wings/wings/pkg/stats"
)

// Mount is a single bind mount into a container.
type Mount struct {
	Source      string
	Destination string
	ReadOnly    bool
}

// ContainerSpec describes the container to create for a workload. It
// mirrors types.WorkloadSpec but speaks the runtime's vocabulary
// (nanoCPUs, byte limits, mounts) rather than the Panel's wire format.
type ContainerSpec struct {
	ID               string
	Image            string
	Args             []string
	Env              map[string]string
	Labels           map[string]string
	MemoryLimitBytes int64
	NanoCPUs         int64
	Mounts           []Mount
	WorkDir          string
}

// ManagedContainer is a minimal record of a container this daemon owns,
// returned by ListManaged for the heartbeat sweep.
type ManagedContainer struct {
	UUID     string
	RawState string
}

// Adapter is the container runtime surface the lifecycle engine,
// install pipeline, and heartbeat sweep drive. ContainerdAdapter is the
// sole production implementation.
type Adapter interface {
	// Version reports the backing runtime's version string.
	Version(ctx context.Context) (string, error)

	// EnsureNetwork makes sure the managed bridge network exists.
	EnsureNetwork(ctx context.Context) error

	// PullImage pulls image, unpacking it for the active snapshotter.
	PullImage(ctx context.Context, image string) error

	// CreateContainer creates (but does not start) a container from spec.
	CreateContainer(ctx context.Context, spec ContainerSpec) error

	// Start starts the container's task, creating it if necessary.
	Start(ctx context.Context, id string) error

	// Stop sends SIGTERM and waits up to timeout before SIGKILL.
	Stop(ctx context.Context, id string, timeout time.Duration) error

	// Kill sends SIGKILL immediately.
	Kill(ctx context.Context, id string) error

	// Restart is Stop followed by Start; containerd has no native
	// restart primitive.
	Restart(ctx context.Context, id string, timeout time.Duration) error

	// Remove deletes the container's task (if any) and the container
	// itself, plus its snapshot. Missing containers are not an error.
	Remove(ctx context.Context, id string) error

	// WaitExit blocks until id's task exits and returns its exit code.
	// A container whose task has already exited returns immediately.
	WaitExit(ctx context.Context, id string) (uint32, error)

	// InspectStatus returns the raw runtime state string for id, in the
	// vocabulary types.StateFromRuntime understands. A container with no
	// task is "created"; a missing container returns an apierr.NotFound
	// error (kind apierr.KindNotFound).
	InspectStatus(ctx context.Context, id string) (string, error)

	// ContainerIP returns the container's network-namespace IPv4 address.
	ContainerIP(ctx context.Context, id string) (string, error)

	// StatsOnce takes two closely-spaced cgroup samples and returns them
	// as a raw, unnormalized sample for stats.Normalize. diskBytes is not
	// carried in the raw sample; the disk figure is passed to
	// stats.Normalize instead.
	StatsOnce(ctx context.Context, id string, diskBytes uint64) (stats.RawSample, error)

	// UpdateResources live-updates a running task's cgroup limits.
	UpdateResources(ctx context.Context, id string, memoryLimitBytes, nanoCPUs int64) error

	// Exec runs command inside the container's namespaces and returns
	// once it completes; output is discarded, only the error matters.
	Exec(ctx context.Context, id string, command []string) error

	// LogsTail returns up to maxLines of the most recent captured
	// stdout/stderr output for id.
	LogsTail(ctx context.Context, id string, maxLines int) ([]string, error)

	// ListManaged returns every container carrying the managed label,
	// for the heartbeat reconciliation sweep.
	ListManaged(ctx context.Context) ([]ManagedContainer, error)

	// Close releases the underlying client connection.
	Close() error
}
