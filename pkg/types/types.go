// Package types holds the data model shared across the daemon: workload
// specs, resource samples, server state, and the lifecycle event sum type.
package types

import (
	"encoding/json"
	"strings"
	"time"
)

// PortMapping binds a host port to a container port. TCP only.
type PortMapping struct {
	HostPort      int `json:"host_port"`
	ContainerPort int `json:"container_port"`
}

// WorkloadSpec is the persisted description of a single managed container.
// Panel payloads may use either the canonical snake_case field names or
// the camelCase aliases some Panel versions send; UnmarshalJSON below
// merges both.
type WorkloadSpec struct {
	UUID             string            `json:"uuid"`
	Image            string            `json:"image"`
	StartupCommand   string            `json:"startup_command"`
	Env              map[string]string `json:"env"`
	MemoryLimitBytes int64             `json:"memory_limit_bytes"`
	CPULimitNanoCPUs int64             `json:"cpu_limit_nanocpus"`
	DiskLimitBytes   int64             `json:"disk_limit_bytes"`
	PortMappings     []PortMapping     `json:"port_mappings"`
	VolumePath       string            `json:"volume_path"`
}

// workloadSpecAlias mirrors WorkloadSpec's fields under the camelCase
// names older Panel versions use for the same payload.
type workloadSpecAlias struct {
	UUID             string            `json:"uuid"`
	Image            string            `json:"image"`
	DockerImage      string            `json:"dockerImage"`
	StartupCommand   string            `json:"startup_command"`
	StartupCommand2  string            `json:"startupCommand"`
	Env              map[string]string `json:"env"`
	Environment      map[string]string `json:"environment"`
	MemoryLimitBytes int64             `json:"memory_limit_bytes"`
	MemoryLimit      int64             `json:"memoryLimit"`
	CPULimitNanoCPUs int64             `json:"cpu_limit_nanocpus"`
	CPULimit         int64             `json:"cpuLimit"`
	DiskLimitBytes   int64             `json:"disk_limit_bytes"`
	DiskLimit        int64             `json:"diskLimit"`
	PortMappings     []PortMapping     `json:"port_mappings"`
	PortMappings2    []PortMapping     `json:"portMappings"`
	VolumePath       string            `json:"volume_path"`
	VolumePath2      string            `json:"volumePath"`
}

// UnmarshalJSON accepts both the canonical field names and the Panel's
// camelCase aliases in the same payload, canonical names winning ties.
func (s *WorkloadSpec) UnmarshalJSON(data []byte) error {
	var a workloadSpecAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	s.UUID = a.UUID
	s.Image = firstNonEmpty(a.Image, a.DockerImage)
	s.StartupCommand = firstNonEmpty(a.StartupCommand, a.StartupCommand2)
	s.Env = a.Env
	if s.Env == nil {
		s.Env = a.Environment
	}
	s.MemoryLimitBytes = firstNonZero(a.MemoryLimitBytes, a.MemoryLimit)
	s.CPULimitNanoCPUs = firstNonZero(a.CPULimitNanoCPUs, a.CPULimit)
	s.DiskLimitBytes = firstNonZero(a.DiskLimitBytes, a.DiskLimit)
	s.PortMappings = a.PortMappings
	if s.PortMappings == nil {
		s.PortMappings = a.PortMappings2
	}
	s.VolumePath = firstNonEmpty(a.VolumePath, a.VolumePath2)
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

// StartupArgs whitespace-tokenizes the startup command.
func (s *WorkloadSpec) StartupArgs() []string {
	if s.StartupCommand == "" {
		return nil
	}
	return strings.Fields(s.StartupCommand)
}

// ContainerName returns the deterministic container name for a UUID. This
// is the sole naming scheme the core uses to locate containers at the
// runtime; no shortened form is ever produced.
func ContainerName(uuid string) string {
	return "nexus-" + uuid
}

// InstallContainerName returns the name of the one-shot install container
// for a UUID.
func InstallContainerName(uuid string) string {
	return "nexus-install-" + uuid
}

const (
	// ManagedLabel marks a container as owned by this daemon.
	ManagedLabel = "nexus.managed"
	// ServerUUIDLabel carries the workload UUID on a managed container.
	ServerUUIDLabel = "nexus.server_uuid"
	// BridgeNetwork is the network ensured for managed containers.
	BridgeNetwork = "nexus0"
)

// ServerState is the normalized workload lifecycle state.
type ServerState string

const (
	StateUnknown  ServerState = "Unknown"
	StateOffline  ServerState = "Offline"
	StateStarting ServerState = "Starting"
	StateRunning  ServerState = "Running"
)

// StateFromRuntime maps a raw runtime state string onto ServerState. The
// mapping is total: any unrecognized string maps to StateUnknown.
func StateFromRuntime(raw string) ServerState {
	switch raw {
	case "running":
		return StateRunning
	case "created", "restarting":
		return StateStarting
	case "paused", "exited", "dead", "removing":
		return StateOffline
	default:
		return StateUnknown
	}
}

// ResourceSample is an ephemeral normalized stat reading.
type ResourceSample struct {
	CPUPercent       float64   `json:"cpu_percent"`
	MemoryBytes      uint64    `json:"memory_bytes"`
	MemoryLimitBytes uint64    `json:"memory_limit_bytes"`
	NetRxBytes       uint64    `json:"net_rx_bytes"`
	NetTxBytes       uint64    `json:"net_tx_bytes"`
	DiskBytes        uint64    `json:"disk_bytes"`
	Timestamp        time.Time `json:"timestamp"`
}

// PowerAction is a requested lifecycle transition.
type PowerAction string

const (
	PowerStart   PowerAction = "start"
	PowerStop    PowerAction = "stop"
	PowerRestart PowerAction = "restart"
	PowerKill    PowerAction = "kill"
)

// ParsePowerAction validates a Panel-supplied action string.
func ParsePowerAction(s string) (PowerAction, bool) {
	switch PowerAction(strings.ToLower(s)) {
	case PowerStart:
		return PowerStart, true
	case PowerStop:
		return PowerStop, true
	case PowerRestart:
		return PowerRestart, true
	case PowerKill:
		return PowerKill, true
	default:
		return "", false
	}
}

// EventKind identifies which variant of WingsEvent is populated.
type EventKind string

const (
	EventStateChanged    EventKind = "state_changed"
	EventInstallComplete EventKind = "install_complete"
	EventInstallFailed   EventKind = "install_failed"
)

// WingsEvent is the sum type published to the event bus. Exactly one of
// the variant-specific fields is meaningful, selected by Kind.
type WingsEvent struct {
	Kind      EventKind `json:"kind"`
	UUID      string    `json:"uuid"`
	Timestamp time.Time `json:"timestamp"`

	// StateChanged fields.
	PreviousState ServerState `json:"previous_state,omitempty"`
	NewState      ServerState `json:"new_state,omitempty"`

	// InstallFailed fields.
	Error string `json:"error,omitempty"`
}

// NewStateChanged builds a StateChanged event with the timestamp set to now.
func NewStateChanged(uuid string, prev, next ServerState) WingsEvent {
	return WingsEvent{
		Kind:          EventStateChanged,
		UUID:          uuid,
		Timestamp:     time.Now().UTC(),
		PreviousState: prev,
		NewState:      next,
	}
}

// NewInstallComplete builds an InstallComplete event.
func NewInstallComplete(uuid string) WingsEvent {
	return WingsEvent{Kind: EventInstallComplete, UUID: uuid, Timestamp: time.Now().UTC()}
}

// NewInstallFailed builds an InstallFailed event.
func NewInstallFailed(uuid string, err error) WingsEvent {
	return WingsEvent{Kind: EventInstallFailed, UUID: uuid, Timestamp: time.Now().UTC(), Error: err.Error()}
}

// ServerStatus is the response shape for a status query.
type ServerStatus struct {
	UUID      string          `json:"uuid"`
	State     ServerState     `json:"state"`
	Resources *ResourceSample `json:"resources,omitempty"`
}
