// Package grpcserver wires the hand-written nexus.NexusService onto the
// lifecycle engine.
package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nexus-wings/wings/api/proto"
	"github.com/nexus-wings/wings/pkg/apierr"
	"github.com/nexus-wings/wings/pkg/events"
	"github.com/nexus-wings/wings/pkg/heartbeat"
	"github.com/nexus-wings/wings/pkg/lifecycle"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/types"
)

// keepaliveInterval is how often EventStream pushes a keepalive
// PanelCommand while draining the event bus.
const keepaliveInterval = 30 * time.Second

// Server implements proto.NexusServiceServer over a lifecycle.Engine.
type Server struct {
	proto.UnimplementedNexusServiceServer

	engine  *lifecycle.Engine
	adapter runtime.Adapter
	bus     *events.Bus
	dataDir string
	version string
}

// New builds a Server.
func New(engine *lifecycle.Engine, adapter runtime.Adapter, bus *events.Bus, dataDir, version string) *Server {
	return &Server{engine: engine, adapter: adapter, bus: bus, dataDir: dataDir, version: version}
}

func toSpec(cfg proto.ServerConfig) types.WorkloadSpec {
	mappings := make([]types.PortMapping, 0, len(cfg.PortMappings))
	for _, pm := range cfg.PortMappings {
		mappings = append(mappings, types.PortMapping{
			HostPort:      int(pm.HostPort),
			ContainerPort: int(pm.ContainerPort),
		})
	}
	return types.WorkloadSpec{
		UUID:             cfg.UUID,
		Image:            cfg.DockerImage,
		StartupCommand:   cfg.StartupCommand,
		Env:              cfg.Environment,
		MemoryLimitBytes: int64(cfg.MemoryLimitMB) * 1024 * 1024,
		CPULimitNanoCPUs: int64(cfg.CPULimit) * 10_000_000,
		DiskLimitBytes:   int64(cfg.DiskLimitMB) * 1024 * 1024,
		PortMappings:     mappings,
		VolumePath:       cfg.VolumePath,
	}
}

func toProtoState(s types.ServerState) proto.ServerState {
	switch s {
	case types.StateOffline:
		return proto.StateOffline
	case types.StateStarting:
		return proto.StateStarting
	case types.StateRunning:
		return proto.StateRunning
	default:
		return proto.StateUnknown
	}
}

func toProtoPowerAction(a proto.PowerAction) (types.PowerAction, bool) {
	switch a {
	case proto.PowerStart:
		return types.PowerStart, true
	case proto.PowerStop:
		return types.PowerStop, true
	case proto.PowerRestart:
		return types.PowerRestart, true
	case proto.PowerKill:
		return types.PowerKill, true
	default:
		return "", false
	}
}

func grpcErr(err error) error {
	if e, ok := apierr.As(err); ok {
		return status.Error(apierr.GRPCCodeFor(e), e.Message)
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *Server) CreateServer(ctx context.Context, req *proto.CreateServerRequest) (*proto.CreateServerResponse, error) {
	spec := toSpec(req.Server)
	id, err := s.engine.Create(ctx, spec, req.InstallScript, req.InstallDockerImage)
	if err != nil {
		return nil, grpcErr(err)
	}
	return &proto.CreateServerResponse{ContainerID: id, UUID: spec.UUID}, nil
}

func (s *Server) DeleteServer(ctx context.Context, req *proto.DeleteServerRequest) (*proto.DeleteServerResponse, error) {
	if err := s.engine.Delete(ctx, req.UUID, req.RemoveVolumes); err != nil {
		return nil, grpcErr(err)
	}
	return &proto.DeleteServerResponse{}, nil
}

func (s *Server) ReinstallServer(ctx context.Context, req *proto.ReinstallServerRequest) (*proto.ReinstallServerResponse, error) {
	spec := toSpec(req.Server)
	s.engine.Reinstall(spec, req.InstallScript, req.InstallDockerImage)
	return &proto.ReinstallServerResponse{}, nil
}

func (s *Server) SendPowerAction(ctx context.Context, req *proto.PowerActionRequest) (*proto.PowerActionResponse, error) {
	action, ok := toProtoPowerAction(req.Action)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "invalid power action")
	}
	if err := s.engine.PowerAction(ctx, req.UUID, action); err != nil {
		return nil, grpcErr(err)
	}
	return &proto.PowerActionResponse{}, nil
}

func (s *Server) SendCommand(ctx context.Context, req *proto.CommandRequest) (*proto.CommandResponse, error) {
	if err := s.engine.SendCommand(ctx, req.UUID, req.Command); err != nil {
		return nil, grpcErr(err)
	}
	return &proto.CommandResponse{}, nil
}

func (s *Server) SyncServerConfig(ctx context.Context, req *proto.SyncConfigRequest) (*proto.SyncConfigResponse, error) {
	s.engine.SyncConfig(toSpec(req.Server))
	return &proto.SyncConfigResponse{}, nil
}

func (s *Server) GetServerStatus(ctx context.Context, req *proto.ServerStatusRequest) (*proto.ServerStatusResponse, error) {
	st, err := s.engine.GetStatus(ctx, req.UUID)
	if err != nil {
		return nil, grpcErr(err)
	}
	resp := &proto.ServerStatusResponse{UUID: st.UUID, State: toProtoState(st.State)}
	if st.Resources != nil {
		resp.Resources = &proto.ResourceStats{
			CPUPercent:       st.Resources.CPUPercent,
			MemoryBytes:      st.Resources.MemoryBytes,
			MemoryLimitBytes: st.Resources.MemoryLimitBytes,
			NetRxBytes:       st.Resources.NetRxBytes,
			NetTxBytes:       st.Resources.NetTxBytes,
			DiskBytes:        st.Resources.DiskBytes,
		}
	}
	return resp, nil
}

func (s *Server) GetSystemInfo(ctx context.Context, _ *proto.SystemInfoRequest) (*proto.SystemInfoResponse, error) {
	dockerVersion, err := s.adapter.Version(ctx)
	if err != nil {
		dockerVersion = "unknown"
	}

	managed, err := s.adapter.ListManaged(ctx)
	serverCount := uint32(0)
	if err == nil {
		serverCount = uint32(len(managed))
	}

	memTotal, memUsed := heartbeat.MemoryUsage()
	diskTotal, diskUsed := heartbeat.DiskUsage(s.dataDir)
	return &proto.SystemInfoResponse{
		Version:       s.version,
		DockerVersion: dockerVersion,
		TotalMemory:   memTotal,
		UsedMemory:    memUsed,
		TotalDisk:     diskTotal,
		UsedDisk:      diskUsed,
		CPUPercent:    heartbeat.CPUPercent(ctx),
		ServerCount:   serverCount,
	}, nil
}

func (s *Server) UpdateResources(ctx context.Context, req *proto.UpdateResourcesRequest) (*proto.UpdateResourcesResponse, error) {
	err := s.engine.UpdateResources(ctx, req.UUID, int64(req.MemoryLimitMB), int64(req.CPULimit), int64(req.DiskLimitMB))
	if err != nil {
		return nil, grpcErr(err)
	}
	return &proto.UpdateResourcesResponse{}, nil
}

// EventStream drains the bounded event bus into the Panel connection as
// "event" frames and pushes a "keepalive" PanelCommand every 30s. The
// client->server half is received and discarded until the stream ends.
func (s *Server) EventStream(stream proto.NexusService_EventStreamServer) error {
	go func() {
		for {
			if _, err := stream.Recv(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.bus.Events():
			cmd := &proto.PanelCommand{CommandType: "event", Event: toProtoEvent(ev)}
			if err := stream.Send(cmd); err != nil {
				return err
			}
		case <-ticker.C:
			if err := stream.Send(&proto.PanelCommand{CommandType: "keepalive"}); err != nil {
				return err
			}
		}
	}
}

func toProtoEvent(ev types.WingsEvent) *proto.WingsEvent {
	ts := ev.Timestamp.UnixMilli()
	switch ev.Kind {
	case types.EventStateChanged:
		return &proto.WingsEvent{StateChanged: &proto.ServerStateChanged{
			UUID:          ev.UUID,
			PreviousState: toProtoState(ev.PreviousState),
			NewState:      toProtoState(ev.NewState),
			TimestampMs:   ts,
		}}
	case types.EventInstallComplete:
		return &proto.WingsEvent{InstallComplete: &proto.ServerInstallComplete{UUID: ev.UUID, TimestampMs: ts}}
	case types.EventInstallFailed:
		return &proto.WingsEvent{InstallFailed: &proto.ServerInstallFailed{UUID: ev.UUID, ErrorMessage: ev.Error, TimestampMs: ts}}
	default:
		return &proto.WingsEvent{}
	}
}
