package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/containerd/cgroups/stats/v1"
	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/containerd/typeurl/v2"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/prometheus/procfs"

	"github.com/nexus-wings/wings/pkg/apierr"
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/stats"
	"github.com/nexus-wings/wings/pkg/types"
)

const (
	// Namespace isolates this daemon's containers from any other
	// containerd tenant on the same host.
	Namespace = "nexus-wings"

	// DefaultSocketPath is the standard containerd socket location.
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// cniConfDir is where the bridge network config is written so
	// containerd's built-in CNI support picks it up.
	cniConfDir = "/etc/cni/net.d"

	cfsPeriod = uint64(100000)
)

// ContainerdAdapter implements Adapter against a local containerd socket.
type ContainerdAdapter struct {
	client   *containerd.Client
	logsRoot string
}

// NewContainerdAdapter dials socketPath (DefaultSocketPath if empty) and
// stores captured container logs under <logsRoot>/<id>.log.
func NewContainerdAdapter(socketPath, logsRoot string) (*ContainerdAdapter, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to containerd: %w", err)
	}
	if err := os.MkdirAll(logsRoot, 0o755); err != nil {
		client.Close()
		return nil, fmt.Errorf("create logs root: %w", err)
	}
	return &ContainerdAdapter{client: client, logsRoot: logsRoot}, nil
}

func (a *ContainerdAdapter) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *ContainerdAdapter) ctx(ctx context.Context) context.Context {
	return namespaces.WithNamespace(ctx, Namespace)
}

func (a *ContainerdAdapter) Version(ctx context.Context) (string, error) {
	v, err := a.client.Version(a.ctx(ctx))
	if err != nil {
		return "", fmt.Errorf("get containerd version: %w", err)
	}
	return v.Version, nil
}

// cniBridgeConfig is the minimal CNI conflist needed for containerd's
// built-in CNI plugin to attach new tasks to an isolated bridge.
type cniBridgeConfig struct {
	CNIVersion string `json:"cniVersion"`
	Name       string `json:"name"`
	Plugins    []any  `json:"plugins"`
}

// EnsureNetwork writes the nexus0 bridge CNI config if absent. It never
// overwrites an existing config: a re-run after a manual edit is a no-op.
func (a *ContainerdAdapter) EnsureNetwork(ctx context.Context) error {
	path := filepath.Join(cniConfDir, "10-"+types.BridgeNetwork+".conflist")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := cniBridgeConfig{
		CNIVersion: "1.0.0",
		Name:       types.BridgeNetwork,
		Plugins: []any{
			map[string]any{
				"type":        "bridge",
				"bridge":      types.BridgeNetwork,
				"isGateway":   true,
				"ipMasq":      true,
				"hairpinMode": true,
				"ipam": map[string]any{
					"type": "host-local",
					"ranges": []any{
						[]any{map[string]any{"subnet": "10.88.0.0/16"}},
					},
				},
			},
			map[string]any{"type": "portmap", "capabilities": map[string]any{"portMappings": true}},
		},
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal CNI config: %w", err)
	}
	if err := os.MkdirAll(cniConfDir, 0o755); err != nil {
		return fmt.Errorf("create CNI config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write CNI config: %w", err)
	}
	return nil
}

func (a *ContainerdAdapter) PullImage(ctx context.Context, image string) error {
	_, err := a.client.Pull(a.ctx(ctx), image, containerd.WithPullUnpack)
	if err != nil {
		return fmt.Errorf("pull image %s: %w", image, err)
	}
	return nil
}

func (a *ContainerdAdapter) CreateContainer(ctx context.Context, spec ContainerSpec) error {
	ctx = a.ctx(ctx)

	image, err := a.client.GetImage(ctx, spec.Image)
	if err != nil {
		return fmt.Errorf("get image %s: %w", spec.Image, err)
	}

	envs := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		envs = append(envs, k+"="+v)
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(envs),
		oci.WithProcessArgs(spec.Args...),
	}
	if spec.WorkDir != "" {
		opts = append(opts, oci.WithProcessCwd(spec.WorkDir))
	}
	if spec.NanoCPUs > 0 {
		shares := uint64(spec.NanoCPUs / 1_000_000)
		quota := spec.NanoCPUs / 1_000
		opts = append(opts, oci.WithCPUShares(shares), oci.WithCPUCFS(quota, cfsPeriod))
	}
	if spec.MemoryLimitBytes > 0 {
		opts = append(opts, oci.WithMemoryLimit(uint64(spec.MemoryLimitBytes)))
	}

	var mounts []specs.Mount
	for _, m := range spec.Mounts {
		options := []string{"rbind"}
		if m.ReadOnly {
			options = append(options, "ro")
		} else {
			options = append(options, "rw")
		}
		mounts = append(mounts, specs.Mount{
			Source:      m.Source,
			Destination: m.Destination,
			Type:        "bind",
			Options:     options,
		})
	}
	if len(mounts) > 0 {
		opts = append(opts, oci.WithMounts(mounts))
	}

	labels := map[string]string{types.ManagedLabel: "true"}
	for k, v := range spec.Labels {
		labels[k] = v
	}

	_, err = a.client.NewContainer(
		ctx,
		spec.ID,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(spec.ID+"-snapshot", image),
		containerd.WithNewSpec(opts...),
		containerd.WithContainerLabels(labels),
	)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	return nil
}

func (a *ContainerdAdapter) logPath(id string) string {
	return filepath.Join(a.logsRoot, id+".log")
}

func (a *ContainerdAdapter) Start(ctx context.Context, id string) error {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("load container %s: %w", id, err)
	}

	if _, err := c.Task(ctx, nil); err == nil {
		return nil // already has a task; Start is idempotent
	}

	logFile, err := os.OpenFile(a.logPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	task, err := c.NewTask(ctx, cio.NewCreator(cio.WithStreams(nil, logFile, logFile)))
	if err != nil {
		logFile.Close()
		return fmt.Errorf("create task: %w", err)
	}
	if err := task.Start(ctx); err != nil {
		return fmt.Errorf("start task: %w", err)
	}
	return nil
}

func (a *ContainerdAdapter) Stop(ctx context.Context, id string, timeout time.Duration) error {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("load container %s: %w", id, err)
	}

	task, err := c.Task(ctx, nil)
	if err != nil {
		return nil // not running
	}

	stopCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusC, err := task.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for task: %w", err)
	}
	if err := task.Kill(stopCtx, syscall.SIGTERM); err != nil {
		return fmt.Errorf("send SIGTERM: %w", err)
	}

	select {
	case <-statusC:
	case <-stopCtx.Done():
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil {
			return fmt.Errorf("send SIGKILL: %w", err)
		}
		<-statusC
	}

	if _, err := task.Delete(ctx); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (a *ContainerdAdapter) Kill(ctx context.Context, id string) error {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("load container %s: %w", id, err)
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return nil
	}
	statusC, err := task.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for task: %w", err)
	}
	if err := task.Kill(ctx, syscall.SIGKILL); err != nil {
		return fmt.Errorf("send SIGKILL: %w", err)
	}
	<-statusC
	if _, err := task.Delete(ctx); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (a *ContainerdAdapter) Restart(ctx context.Context, id string, timeout time.Duration) error {
	if err := a.Stop(ctx, id, timeout); err != nil {
		return fmt.Errorf("restart stop phase: %w", err)
	}
	if err := a.Start(ctx, id); err != nil {
		return fmt.Errorf("restart start phase: %w", err)
	}
	return nil
}

func (a *ContainerdAdapter) Remove(ctx context.Context, id string) error {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return nil // already gone
	}
	if task, err := c.Task(ctx, nil); err == nil {
		if status, err := task.Status(ctx); err == nil && status.Status == containerd.Running {
			if err := a.Stop(ctx, id, 10*time.Second); err != nil {
				log.Logger.Warn().Str("uuid", id).Err(err).Msg("failed to stop container before removal")
			}
		} else {
			task.Delete(ctx)
		}
	}
	if err := c.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return fmt.Errorf("delete container: %w", err)
	}
	os.Remove(a.logPath(id))
	return nil
}

// WaitExit blocks until id's task exits and returns its exit code. The
// task is deleted once its status has been collected so a later Remove
// does not race the reaper.
func (a *ContainerdAdapter) WaitExit(ctx context.Context, id string) (uint32, error) {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load container %s: %w", id, err)
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("get task: %w", err)
	}
	statusC, err := task.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for task: %w", err)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case st := <-statusC:
		code, _, err := st.Result()
		if err != nil {
			return 0, fmt.Errorf("collect exit status: %w", err)
		}
		task.Delete(ctx)
		return code, nil
	}
}

func (a *ContainerdAdapter) InspectStatus(ctx context.Context, id string) (string, error) {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return "", apierr.NotFound(fmt.Sprintf("container %s", id))
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return "created", nil
	}
	status, err := task.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("get task status: %w", err)
	}
	switch status.Status {
	case containerd.Running:
		return "running", nil
	case containerd.Paused, containerd.Pausing:
		return "paused", nil
	case containerd.Stopped:
		return "exited", nil
	case containerd.Created:
		return "created", nil
	default:
		return string(status.Status), nil
	}
}

func (a *ContainerdAdapter) ContainerIP(ctx context.Context, id string) (string, error) {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load container %s: %w", id, err)
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("get task: %w", err)
	}
	pid := task.Pid()
	if pid == 0 {
		return "", fmt.Errorf("container task has no pid")
	}

	cmd := exec.CommandContext(ctx, "nsenter", "-t", strconv.Itoa(int(pid)), "-n", "ip", "-4", "addr", "show", "eth0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("get container IP: %w (output: %s)", err, string(output))
	}
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "inet ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ip, _, err := net.ParseCIDR(fields[1])
		if err != nil {
			return "", fmt.Errorf("parse IP %s: %w", fields[1], err)
		}
		return ip.String(), nil
	}
	return "", fmt.Errorf("no IP address found for container %s", id)
}

func readSystemCPUUsageNanos() (uint64, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, fmt.Errorf("open procfs: %w", err)
	}
	st, err := fs.Stat()
	if err != nil {
		return 0, fmt.Errorf("read /proc/stat: %w", err)
	}
	total := st.CPUTotal.User + st.CPUTotal.Nice + st.CPUTotal.System + st.CPUTotal.Idle +
		st.CPUTotal.Iowait + st.CPUTotal.IRQ + st.CPUTotal.SoftIRQ + st.CPUTotal.Steal
	return uint64(total * 1e9), nil
}

func taskMetrics(ctx context.Context, task containerd.Task) (*v1.Metrics, error) {
	metric, err := task.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("read task metrics: %w", err)
	}
	v, err := typeurl.UnmarshalAny(metric.Data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	m, ok := v.(*v1.Metrics)
	if !ok {
		return nil, fmt.Errorf("unsupported metrics type %T", v)
	}
	return m, nil
}

// StatsOnce samples cgroup metrics twice, 200ms apart, to compute a CPU
// delta, mirroring the Docker stats stream's two-sample CPU formula.
func (a *ContainerdAdapter) StatsOnce(ctx context.Context, id string, diskBytes uint64) (stats.RawSample, error) {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return stats.RawSample{}, fmt.Errorf("load container %s: %w", id, err)
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return stats.RawSample{}, fmt.Errorf("get task: %w", err)
	}

	pre, err := taskMetrics(ctx, task)
	if err != nil {
		return stats.RawSample{}, err
	}
	preSystem, err := readSystemCPUUsageNanos()
	if err != nil {
		return stats.RawSample{}, err
	}

	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return stats.RawSample{}, ctx.Err()
	}

	cur, err := taskMetrics(ctx, task)
	if err != nil {
		return stats.RawSample{}, err
	}
	curSystem, err := readSystemCPUUsageNanos()
	if err != nil {
		return stats.RawSample{}, err
	}

	r := stats.RawSample{
		SystemCPUUsage:    curSystem,
		PreSystemCPUUsage: preSystem,
	}
	if cur.CPU != nil && cur.CPU.Usage != nil {
		r.CPUTotalUsage = cur.CPU.Usage.Total
		r.PerCPUUsageLen = len(cur.CPU.Usage.PerCPU)
	}
	if pre.CPU != nil && pre.CPU.Usage != nil {
		r.PreCPUTotalUsage = pre.CPU.Usage.Total
	}
	if cur.Memory != nil && cur.Memory.Usage != nil {
		r.MemoryUsageBytes = cur.Memory.Usage.Usage
		r.MemoryLimitBytes = cur.Memory.Usage.Limit
	}
	for _, iface := range cur.Network {
		r.NetRxBytes += iface.RxBytes
		r.NetTxBytes += iface.TxBytes
	}
	_ = diskBytes // folded in by stats.Normalize, not the raw sample
	return r, nil
}

func (a *ContainerdAdapter) UpdateResources(ctx context.Context, id string, memoryLimitBytes, nanoCPUs int64) error {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("load container %s: %w", id, err)
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	mem := uint64(memoryLimitBytes)
	shares := uint32(nanoCPUs / 1_000_000)
	quota := nanoCPUs / 1_000
	period := cfsPeriod

	spec := &specs.LinuxResources{
		Memory: &specs.LinuxMemory{Limit: ptrInt64(int64(mem))},
		CPU: &specs.LinuxCPU{
			Shares: ptrUint64(uint64(shares)),
			Quota:  ptrInt64(quota),
			Period: &period,
		},
	}
	if err := task.Update(ctx, containerd.WithResources(spec)); err != nil {
		return fmt.Errorf("update resources: %w", err)
	}
	return nil
}

func ptrInt64(v int64) *int64    { return &v }
func ptrUint64(v uint64) *uint64 { return &v }

func (a *ContainerdAdapter) Exec(ctx context.Context, id string, command []string) error {
	ctx = a.ctx(ctx)

	c, err := a.client.LoadContainer(ctx, id)
	if err != nil {
		return fmt.Errorf("load container %s: %w", id, err)
	}
	task, err := c.Task(ctx, nil)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	spec, err := c.Spec(ctx)
	if err != nil {
		return fmt.Errorf("read container spec: %w", err)
	}
	procSpec := *spec.Process
	procSpec.Args = command

	execID := "exec-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	process, err := task.Exec(ctx, execID, &procSpec, cio.NullIO)
	if err != nil {
		return fmt.Errorf("create exec process: %w", err)
	}
	statusC, err := process.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for exec process: %w", err)
	}
	if err := process.Start(ctx); err != nil {
		return fmt.Errorf("start exec process: %w", err)
	}
	status := <-statusC
	if code, _, err := status.Result(); err == nil && code != 0 {
		return fmt.Errorf("exec exited with code %d", code)
	}
	process.Delete(ctx)
	return nil
}

// LogsTail reads the captured stdout/stderr log file for id and returns
// its last maxLines lines. Containerd has no native log-streaming API
// (the Docker-era predecessor used the engine's log driver); the file is
// written by the cio.Creator installed in Start.
func (a *ContainerdAdapter) LogsTail(ctx context.Context, id string, maxLines int) ([]string, error) {
	data, err := os.ReadFile(a.logPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log file: %w", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

func (a *ContainerdAdapter) ListManaged(ctx context.Context) ([]ManagedContainer, error) {
	ctx = a.ctx(ctx)

	containers, err := a.client.Containers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]ManagedContainer, 0, len(containers))
	for _, c := range containers {
		labels, err := c.Labels(ctx)
		if err != nil || labels[types.ManagedLabel] != "true" {
			continue
		}
		uuid := labels[types.ServerUUIDLabel]
		if uuid == "" {
			uuid = strings.TrimPrefix(c.ID(), "nexus-")
		}
		status, err := a.InspectStatus(ctx, c.ID())
		if err != nil {
			status = "unknown"
		}
		out = append(out, ManagedContainer{UUID: uuid, RawState: status})
	}
	return out, nil
}
