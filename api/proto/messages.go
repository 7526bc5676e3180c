// Package proto holds the hand-written Go counterpart of nexus.proto.
// Message types are plain structs (not protobuf-reflection-backed
// generated code): this exercise has no protoc/protoc-gen-go-grpc
// toolchain available, so the wire format is JSON carried over a
// custom grpc/encoding.Codec (see codec.go) rather than fabricated
// descriptor bytes.
package proto

// PortMapping binds a host port to a container port.
type PortMapping struct {
	HostPort      uint32 `json:"host_port"`
	ContainerPort uint32 `json:"container_port"`
}

// ServerConfig is the wire shape of a workload spec.
type ServerConfig struct {
	UUID           string            `json:"uuid"`
	DockerImage    string            `json:"docker_image"`
	StartupCommand string            `json:"startup_command"`
	Environment    map[string]string `json:"environment"`
	MemoryLimitMB  uint64            `json:"memory_limit_mb"`
	CPULimit       uint32            `json:"cpu_limit"`
	DiskLimitMB    uint64            `json:"disk_limit_mb"`
	PortMappings   []PortMapping     `json:"port_mappings"`
	VolumePath     string            `json:"volume_path"`
}

// ServerState mirrors the proto enum of the same name.
type ServerState int32

const (
	StateUnknown ServerState = iota
	StateOffline
	StateStarting
	StateRunning
)

// PowerAction mirrors the proto enum of the same name.
type PowerAction int32

const (
	PowerStart PowerAction = iota
	PowerStop
	PowerRestart
	PowerKill
)

type CreateServerRequest struct {
	Server             ServerConfig `json:"server"`
	InstallScript      string       `json:"install_script"`
	InstallDockerImage string       `json:"install_docker_image"`
}

type CreateServerResponse struct {
	ContainerID string `json:"container_id"`
	UUID        string `json:"uuid"`
}

type DeleteServerRequest struct {
	UUID          string `json:"uuid"`
	RemoveVolumes bool   `json:"remove_volumes"`
}

type DeleteServerResponse struct{}

type ReinstallServerRequest struct {
	Server             ServerConfig `json:"server"`
	InstallScript      string       `json:"install_script"`
	InstallDockerImage string       `json:"install_docker_image"`
}

type ReinstallServerResponse struct{}

type PowerActionRequest struct {
	UUID   string      `json:"uuid"`
	Action PowerAction `json:"action"`
}

type PowerActionResponse struct{}

type CommandRequest struct {
	UUID    string `json:"uuid"`
	Command string `json:"command"`
}

type CommandResponse struct{}

type SyncConfigRequest struct {
	Server ServerConfig `json:"server"`
}

type SyncConfigResponse struct{}

type ResourceStats struct {
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryBytes      uint64  `json:"memory_bytes"`
	MemoryLimitBytes uint64  `json:"memory_limit_bytes"`
	NetRxBytes       uint64  `json:"net_rx_bytes"`
	NetTxBytes       uint64  `json:"net_tx_bytes"`
	DiskBytes        uint64  `json:"disk_bytes"`
}

type ServerStatusRequest struct {
	UUID string `json:"uuid"`
}

type ServerStatusResponse struct {
	UUID      string         `json:"uuid"`
	State     ServerState    `json:"state"`
	Resources *ResourceStats `json:"resources,omitempty"`
}

type SystemInfoRequest struct{}

type SystemInfoResponse struct {
	Version       string  `json:"version"`
	DockerVersion string  `json:"docker_version"`
	TotalMemory   uint64  `json:"total_memory"`
	UsedMemory    uint64  `json:"used_memory"`
	TotalDisk     uint64  `json:"total_disk"`
	UsedDisk      uint64  `json:"used_disk"`
	CPUPercent    float64 `json:"cpu_percent"`
	ServerCount   uint32  `json:"server_count"`
}

type UpdateResourcesRequest struct {
	UUID          string `json:"uuid"`
	MemoryLimitMB uint64 `json:"memory_limit_mb"`
	CPULimit      uint32 `json:"cpu_limit"`
	DiskLimitMB   uint64 `json:"disk_limit_mb"`
}

type UpdateResourcesResponse struct{}

type ServerStateChanged struct {
	UUID          string      `json:"uuid"`
	PreviousState ServerState `json:"previous_state"`
	NewState      ServerState `json:"new_state"`
	TimestampMs   int64       `json:"timestamp_ms"`
}

type ServerInstallComplete struct {
	UUID        string `json:"uuid"`
	TimestampMs int64  `json:"timestamp_ms"`
}

type ServerInstallFailed struct {
	UUID         string `json:"uuid"`
	ErrorMessage string `json:"error_message"`
	TimestampMs  int64  `json:"timestamp_ms"`
}

// WingsEvent is a oneof: exactly one field is non-nil.
type WingsEvent struct {
	StateChanged    *ServerStateChanged    `json:"state_changed,omitempty"`
	InstallComplete *ServerInstallComplete `json:"install_complete,omitempty"`
	InstallFailed   *ServerInstallFailed   `json:"install_failed,omitempty"`
}

// PanelCommand is the server->client frame on EventStream: a periodic
// "keepalive", or an "event" carrying one drained lifecycle event.
type PanelCommand struct {
	CommandType string      `json:"command_type"`
	Event       *WingsEvent `json:"event,omitempty"`
}
