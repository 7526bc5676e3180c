// Package lifecycle implements the engine that serializes per-workload
// power actions, resurrects missing containers from the spec registry,
// and emits state-change events.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-wings/wings/pkg/apierr"
	"github.com/nexus-wings/wings/pkg/console"
	"github.com/nexus-wings/wings/pkg/events"
	"github.com/nexus-wings/wings/pkg/install"
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/metrics"
	"github.com/nexus-wings/wings/pkg/network"
	"github.com/nexus-wings/wings/pkg/registry"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/stats"
	"github.com/nexus-wings/wings/pkg/types"
)

// stopTimeout is the graceful-shutdown window before SIGKILL.
const stopTimeout = 30 * time.Second

// Engine owns workload lifecycle state: the spec registry, console
// buffers, event bus, and per-UUID lock table. It owns no network
// listener; HTTP and gRPC handlers call into it directly.
type Engine struct {
	adapter    runtime.Adapter
	registry   *registry.Registry
	consoles   *console.Registry
	bus        *events.Bus
	ports      *network.PortPublisher
	locks      *lockTable
	dataDir    string
	httpClient *http.Client
	panelURL   string
	panelAuth  string
}

// Config bundles the collaborators an Engine needs.
type Config struct {
	Adapter    runtime.Adapter
	Registry   *registry.Registry
	Consoles   *console.Registry
	Bus        *events.Bus
	Ports      *network.PortPublisher
	DataDir    string
	HTTPClient *http.Client
	PanelURL   string
	PanelAuth  string
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Engine{
		adapter:    cfg.Adapter,
		registry:   cfg.Registry,
		consoles:   cfg.Consoles,
		bus:        cfg.Bus,
		ports:      cfg.Ports,
		locks:      newLockTable(),
		dataDir:    cfg.DataDir,
		httpClient: httpClient,
		panelURL:   cfg.PanelURL,
		panelAuth:  cfg.PanelAuth,
	}
}

func (e *Engine) containerSpec(spec types.WorkloadSpec) runtime.ContainerSpec {
	return runtime.ContainerSpec{
		ID:               types.ContainerName(spec.UUID),
		Image:            spec.Image,
		Args:             spec.StartupArgs(),
		Env:              spec.Env,
		Labels:           map[string]string{types.ServerUUIDLabel: spec.UUID},
		MemoryLimitBytes: spec.MemoryLimitBytes,
		NanoCPUs:         spec.CPULimitNanoCPUs,
		WorkDir:          "/server",
		Mounts: []runtime.Mount{
			{Source: spec.VolumePath, Destination: "/server"},
		},
	}
}

func (e *Engine) state(ctx context.Context, uuid string) types.ServerState {
	raw, err := e.adapter.InspectStatus(ctx, types.ContainerName(uuid))
	if err != nil {
		return types.StateUnknown
	}
	return types.StateFromRuntime(raw)
}

// Create provisions a new workload: its data directory, registry
// entry, pulled image, and container. If installScript and installImage
// are both non-empty, the install pipeline runs as an independent
// background task; Create returns as soon as the container exists.
func (e *Engine) Create(ctx context.Context, spec types.WorkloadSpec, installScript, installImage string) (string, error) {
	volumePath := filepath.Join(e.dataDir, spec.UUID)
	if err := os.MkdirAll(volumePath, 0o755); err != nil {
		return "", apierr.IO("create workload directory", err)
	}
	spec.VolumePath = volumePath

	e.registry.Store(spec)

	if err := e.adapter.PullImage(ctx, spec.Image); err != nil {
		return "", apierr.Runtime("pull image", err)
	}
	cs := e.containerSpec(spec)
	if err := e.adapter.CreateContainer(ctx, cs); err != nil {
		return "", apierr.Runtime("create container", err)
	}

	if installScript != "" && installImage != "" {
		go e.runInstall(spec, installScript, installImage)
	}

	return cs.ID, nil
}

func (e *Engine) runInstall(spec types.WorkloadSpec, script, image string) {
	ctx := context.Background()
	_, err := install.Run(ctx, e.adapter, e.httpClient, install.Request{
		Spec:         spec,
		Script:       script,
		InstallImage: image,
		PanelURL:     e.panelURL,
		PanelAuth:    e.panelAuth,
	})
	if err != nil {
		log.Logger.Error().Str("uuid", spec.UUID).Err(err).Msg("install failed")
		metrics.InstallRunsTotal.WithLabelValues("failed").Inc()
		e.bus.Emit(types.NewInstallFailed(spec.UUID, err))
		return
	}
	metrics.InstallRunsTotal.WithLabelValues("success").Inc()
	e.bus.Emit(types.NewInstallComplete(spec.UUID))
}

// Delete removes a workload's container, console buffer, and registry
// entry. When removeVolumes is set the workload's data directory is
// deleted as well.
func (e *Engine) Delete(ctx context.Context, uuid string, removeVolumes bool) error {
	lock := e.locks.get(uuid)
	lock.Lock()
	defer lock.Unlock()

	if ip, err := e.adapter.ContainerIP(ctx, types.ContainerName(uuid)); err == nil {
		e.ports.Unpublish(uuid, ip)
	}
	if err := e.adapter.Remove(ctx, types.ContainerName(uuid)); err != nil {
		return apierr.Runtime("remove container", err)
	}
	e.consoles.Remove(uuid)
	if err := e.registry.Remove(uuid); err != nil {
		return apierr.IO("remove spec sidecar", err)
	}
	if removeVolumes {
		if err := os.RemoveAll(filepath.Join(e.dataDir, uuid)); err != nil {
			return apierr.IO("remove workload volume", err)
		}
	}
	e.locks.remove(uuid)
	return nil
}

// RestorePublishedPorts re-installs host-port forwarding rules for every
// running managed container after a daemon restart. The iptables rules
// the previous process installed do not survive a host reboot, and the
// publisher's in-memory record never survives the daemon itself; this
// sweep is how existing workloads rejoin the managed network without
// Panel participation. Per-container failures are warnings, not fatal.
func (e *Engine) RestorePublishedPorts(ctx context.Context) {
	managed, err := e.adapter.ListManaged(ctx)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("failed to list containers for port restore")
		return
	}
	for _, c := range managed {
		if types.StateFromRuntime(c.RawState) != types.StateRunning {
			continue
		}
		e.publishPorts(ctx, c.UUID, types.ContainerName(c.UUID))
	}
}

// Reinstall stores the new spec and runs the install pipeline in the
// background. It does not by itself change container state.
func (e *Engine) Reinstall(spec types.WorkloadSpec, installScript, installImage string) {
	e.registry.Store(spec)
	go e.runInstall(spec, installScript, installImage)
}

// PowerAction applies action to uuid. Start runs synchronously so the
// caller sees the new state promptly; stop, restart, and kill are
// spawned as background tasks and reported through the event bus.
func (e *Engine) PowerAction(ctx context.Context, uuid string, action types.PowerAction) error {
	lock := e.locks.get(uuid)
	lock.Lock()
	defer lock.Unlock()

	name := types.ContainerName(uuid)

	if action == types.PowerStart {
		if _, err := e.adapter.InspectStatus(ctx, name); err != nil {
			spec, ok := e.registry.Get(uuid)
			if !ok {
				return apierr.NotFound(fmt.Sprintf("no spec registered for %s", uuid))
			}
			if err := e.adapter.CreateContainer(ctx, e.containerSpec(spec)); err != nil {
				return apierr.Runtime("recreate container", err)
			}
		}
	}

	prev := e.state(ctx, uuid)

	switch action {
	case types.PowerStart:
		timer := metrics.NewTimer()
		if err := e.adapter.Start(ctx, name); err != nil {
			return apierr.Runtime("start container", err)
		}
		timer.ObserveDuration(metrics.PowerActionDuration.WithLabelValues(string(action)))
		e.publishPorts(ctx, uuid, name)
		next := e.state(ctx, uuid)
		e.bus.Emit(types.NewStateChanged(uuid, prev, next))
		return nil

	case types.PowerStop, types.PowerRestart, types.PowerKill:
		go e.runBackgroundPower(uuid, name, action, prev)
		return nil

	default:
		return apierr.Config(fmt.Sprintf("unknown power action %q", action))
	}
}

// publishPorts installs host-port forwarding rules for uuid's
// configured port mappings, if any. Failures are logged, not fatal.
func (e *Engine) publishPorts(ctx context.Context, uuid, name string) {
	spec, ok := e.registry.Get(uuid)
	if !ok || len(spec.PortMappings) == 0 {
		return
	}
	ip, err := e.adapter.ContainerIP(ctx, name)
	if err != nil {
		log.Logger.Warn().Str("uuid", uuid).Err(err).Msg("failed to resolve container IP for port publishing")
		return
	}
	if err := e.ports.Publish(uuid, ip, spec.PortMappings); err != nil {
		log.Logger.Warn().Str("uuid", uuid).Err(err).Msg("failed to publish host ports")
	}
}

// runBackgroundPower performs a deferred stop/restart/kill. It takes the
// per-UUID lock itself so that queued background actions stay mutually
// exclusive with each other and with any later synchronous Start, even
// though the RPC that spawned this task has already returned.
func (e *Engine) runBackgroundPower(uuid, name string, action types.PowerAction, prev types.ServerState) {
	ctx := context.Background()

	lock := e.locks.get(uuid)
	lock.Lock()
	defer lock.Unlock()

	var ip string
	if action == types.PowerStop || action == types.PowerKill {
		ip, _ = e.adapter.ContainerIP(ctx, name)
	}

	timer := metrics.NewTimer()
	var err error
	switch action {
	case types.PowerStop:
		err = e.adapter.Stop(ctx, name, stopTimeout)
	case types.PowerRestart:
		err = e.adapter.Restart(ctx, name, stopTimeout)
	case types.PowerKill:
		err = e.adapter.Kill(ctx, name)
	}
	timer.ObserveDuration(metrics.PowerActionDuration.WithLabelValues(string(action)))
	if err != nil {
		log.Logger.Error().Str("uuid", uuid).Str("action", string(action)).Err(err).
			Msg("background power action failed")
		return
	}
	if ip != "" {
		e.ports.Unpublish(uuid, ip)
	}
	if action == types.PowerRestart {
		e.publishPorts(ctx, uuid, name)
	}
	next := e.state(ctx, uuid)
	e.bus.Emit(types.NewStateChanged(uuid, prev, next))
}

// SendCommand delegates to the runtime's exec facility without taking
// the per-UUID lock: it is additive, not a state transition.
func (e *Engine) SendCommand(ctx context.Context, uuid, command string) error {
	name := types.ContainerName(uuid)
	if err := e.adapter.Exec(ctx, name, []string{"/bin/sh", "-c", command}); err != nil {
		return apierr.Runtime("exec command", err)
	}
	return nil
}

// Spec returns the registered spec for uuid, if any.
func (e *Engine) Spec(uuid string) (types.WorkloadSpec, bool) {
	return e.registry.Get(uuid)
}

// SyncConfig idempotently writes spec to the registry without touching
// the container.
func (e *Engine) SyncConfig(spec types.WorkloadSpec) {
	e.registry.Store(spec)
}

// UpdateResources live-updates a running container's limits and
// persists them to the stored spec. Units match the Panel's wire
// format: memMB in MiB, cpuUnits in hundredths of a core (100 units ==
// 1 core). The disk limit is recorded but not enforced at this layer.
func (e *Engine) UpdateResources(ctx context.Context, uuid string, memMB, cpuUnits, diskMB int64) error {
	lock := e.locks.get(uuid)
	lock.Lock()
	defer lock.Unlock()

	memoryBytes := memMB * 1024 * 1024
	nanoCPUs := cpuUnits * 10_000_000

	name := types.ContainerName(uuid)
	if err := e.adapter.UpdateResources(ctx, name, memoryBytes, nanoCPUs); err != nil {
		return apierr.Runtime("update resources", err)
	}

	if spec, ok := e.registry.Get(uuid); ok {
		spec.MemoryLimitBytes = memoryBytes
		spec.CPULimitNanoCPUs = nanoCPUs
		spec.DiskLimitBytes = diskMB * 1024 * 1024
		e.registry.Store(spec)
	}
	return nil
}

// GetStatus is a non-locking read of a workload's current state and, if
// running, its resource sample combined with a volume disk walk.
func (e *Engine) GetStatus(ctx context.Context, uuid string) (types.ServerStatus, error) {
	name := types.ContainerName(uuid)
	raw, err := e.adapter.InspectStatus(ctx, name)
	if err != nil {
		return types.ServerStatus{}, apierr.NotFound(fmt.Sprintf("container %s", uuid))
	}
	state := types.StateFromRuntime(raw)

	status := types.ServerStatus{UUID: uuid, State: state}
	if state != types.StateRunning {
		return status, nil
	}

	diskBytes := stats.DirSize(filepath.Join(e.dataDir, uuid))
	sample, err := e.adapter.StatsOnce(ctx, name, diskBytes)
	if err != nil {
		log.Logger.Warn().Str("uuid", uuid).Err(err).Msg("failed to sample stats for status")
		return status, nil
	}
	normalized := stats.Normalize(sample, diskBytes)
	status.Resources = &normalized
	return status, nil
}
