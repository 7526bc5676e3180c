package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NexusServiceServer is the server-side contract for nexus.NexusService.
type NexusServiceServer interface {
	CreateServer(context.Context, *CreateServerRequest) (*CreateServerResponse, error)
	DeleteServer(context.Context, *DeleteServerRequest) (*DeleteServerResponse, error)
	ReinstallServer(context.Context, *ReinstallServerRequest) (*ReinstallServerResponse, error)
	SendPowerAction(context.Context, *PowerActionRequest) (*PowerActionResponse, error)
	SendCommand(context.Context, *CommandRequest) (*CommandResponse, error)
	SyncServerConfig(context.Context, *SyncConfigRequest) (*SyncConfigResponse, error)
	GetServerStatus(context.Context, *ServerStatusRequest) (*ServerStatusResponse, error)
	GetSystemInfo(context.Context, *SystemInfoRequest) (*SystemInfoResponse, error)
	UpdateResources(context.Context, *UpdateResourcesRequest) (*UpdateResourcesResponse, error)
	EventStream(NexusService_EventStreamServer) error
}

// UnimplementedNexusServiceServer provides forward-compatible default
// implementations returning codes.Unimplemented; embed it in concrete
// servers.
type UnimplementedNexusServiceServer struct{}

func (UnimplementedNexusServiceServer) CreateServer(context.Context, *CreateServerRequest) (*CreateServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateServer not implemented")
}
func (UnimplementedNexusServiceServer) DeleteServer(context.Context, *DeleteServerRequest) (*DeleteServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteServer not implemented")
}
func (UnimplementedNexusServiceServer) ReinstallServer(context.Context, *ReinstallServerRequest) (*ReinstallServerResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReinstallServer not implemented")
}
func (UnimplementedNexusServiceServer) SendPowerAction(context.Context, *PowerActionRequest) (*PowerActionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendPowerAction not implemented")
}
func (UnimplementedNexusServiceServer) SendCommand(context.Context, *CommandRequest) (*CommandResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendCommand not implemented")
}
func (UnimplementedNexusServiceServer) SyncServerConfig(context.Context, *SyncConfigRequest) (*SyncConfigResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SyncServerConfig not implemented")
}
func (UnimplementedNexusServiceServer) GetServerStatus(context.Context, *ServerStatusRequest) (*ServerStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetServerStatus not implemented")
}
func (UnimplementedNexusServiceServer) GetSystemInfo(context.Context, *SystemInfoRequest) (*SystemInfoResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSystemInfo not implemented")
}
func (UnimplementedNexusServiceServer) UpdateResources(context.Context, *UpdateResourcesRequest) (*UpdateResourcesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateResources not implemented")
}
func (UnimplementedNexusServiceServer) EventStream(NexusService_EventStreamServer) error {
	return status.Error(codes.Unimplemented, "method EventStream not implemented")
}

// NexusService_EventStreamServer is the server-side handle for the
// bidirectional EventStream RPC.
type NexusService_EventStreamServer interface {
	Send(*PanelCommand) error
	Recv() (*WingsEvent, error)
	grpc.ServerStream
}

type eventStreamServer struct {
	grpc.ServerStream
}

func (s *eventStreamServer) Send(m *PanelCommand) error {
	return s.ServerStream.SendMsg(m)
}

func (s *eventStreamServer) Recv() (*WingsEvent, error) {
	m := new(WingsEvent)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _NexusService_CreateServer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateServerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).CreateServer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/CreateServer"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).CreateServer(ctx, req.(*CreateServerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_DeleteServer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteServerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).DeleteServer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/DeleteServer"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).DeleteServer(ctx, req.(*DeleteServerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_ReinstallServer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReinstallServerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).ReinstallServer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/ReinstallServer"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).ReinstallServer(ctx, req.(*ReinstallServerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_SendPowerAction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PowerActionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).SendPowerAction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/SendPowerAction"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).SendPowerAction(ctx, req.(*PowerActionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_SendCommand_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).SendCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/SendCommand"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).SendCommand(ctx, req.(*CommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_SyncServerConfig_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SyncConfigRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).SyncServerConfig(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/SyncServerConfig"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).SyncServerConfig(ctx, req.(*SyncConfigRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_GetServerStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ServerStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).GetServerStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/GetServerStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).GetServerStatus(ctx, req.(*ServerStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_GetSystemInfo_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SystemInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).GetSystemInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/GetSystemInfo"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).GetSystemInfo(ctx, req.(*SystemInfoRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_UpdateResources_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateResourcesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NexusServiceServer).UpdateResources(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nexus.NexusService/UpdateResources"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NexusServiceServer).UpdateResources(ctx, req.(*UpdateResourcesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NexusService_EventStream_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(NexusServiceServer).EventStream(&eventStreamServer{stream})
}

// NexusServiceDesc is the hand-written grpc.ServiceDesc for
// nexus.NexusService, registered with grpc.ForceServerCodec(Codec{}).
var NexusServiceDesc = grpc.ServiceDesc{
	ServiceName: "nexus.NexusService",
	HandlerType: (*NexusServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateServer", Handler: _NexusService_CreateServer_Handler},
		{MethodName: "DeleteServer", Handler: _NexusService_DeleteServer_Handler},
		{MethodName: "ReinstallServer", Handler: _NexusService_ReinstallServer_Handler},
		{MethodName: "SendPowerAction", Handler: _NexusService_SendPowerAction_Handler},
		{MethodName: "SendCommand", Handler: _NexusService_SendCommand_Handler},
		{MethodName: "SyncServerConfig", Handler: _NexusService_SyncServerConfig_Handler},
		{MethodName: "GetServerStatus", Handler: _NexusService_GetServerStatus_Handler},
		{MethodName: "GetSystemInfo", Handler: _NexusService_GetSystemInfo_Handler},
		{MethodName: "UpdateResources", Handler: _NexusService_UpdateResources_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "EventStream",
			Handler:       _NexusService_EventStream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "nexus.proto",
}

// RegisterNexusServiceServer wires srv onto s.
func RegisterNexusServiceServer(s grpc.ServiceRegistrar, srv NexusServiceServer) {
	s.RegisterService(&NexusServiceDesc, srv)
}

// NexusServiceClient is the client-side contract for nexus.NexusService.
type NexusServiceClient interface {
	CreateServer(ctx context.Context, in *CreateServerRequest, opts ...grpc.CallOption) (*CreateServerResponse, error)
	DeleteServer(ctx context.Context, in *DeleteServerRequest, opts ...grpc.CallOption) (*DeleteServerResponse, error)
	ReinstallServer(ctx context.Context, in *ReinstallServerRequest, opts ...grpc.CallOption) (*ReinstallServerResponse, error)
	SendPowerAction(ctx context.Context, in *PowerActionRequest, opts ...grpc.CallOption) (*PowerActionResponse, error)
	SendCommand(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*CommandResponse, error)
	SyncServerConfig(ctx context.Context, in *SyncConfigRequest, opts ...grpc.CallOption) (*SyncConfigResponse, error)
	GetServerStatus(ctx context.Context, in *ServerStatusRequest, opts ...grpc.CallOption) (*ServerStatusResponse, error)
	GetSystemInfo(ctx context.Context, in *SystemInfoRequest, opts ...grpc.CallOption) (*SystemInfoResponse, error)
	UpdateResources(ctx context.Context, in *UpdateResourcesRequest, opts ...grpc.CallOption) (*UpdateResourcesResponse, error)
	EventStream(ctx context.Context, opts ...grpc.CallOption) (NexusService_EventStreamClient, error)
}

type nexusServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewNexusServiceClient builds a client bound to cc. Callers should dial
// with grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})) so every
// call on this client negotiates the JSON codec.
func NewNexusServiceClient(cc grpc.ClientConnInterface) NexusServiceClient {
	return &nexusServiceClient{cc}
}

func (c *nexusServiceClient) CreateServer(ctx context.Context, in *CreateServerRequest, opts ...grpc.CallOption) (*CreateServerResponse, error) {
	out := new(CreateServerResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/CreateServer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) DeleteServer(ctx context.Context, in *DeleteServerRequest, opts ...grpc.CallOption) (*DeleteServerResponse, error) {
	out := new(DeleteServerResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/DeleteServer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) ReinstallServer(ctx context.Context, in *ReinstallServerRequest, opts ...grpc.CallOption) (*ReinstallServerResponse, error) {
	out := new(ReinstallServerResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/ReinstallServer", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) SendPowerAction(ctx context.Context, in *PowerActionRequest, opts ...grpc.CallOption) (*PowerActionResponse, error) {
	out := new(PowerActionResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/SendPowerAction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) SendCommand(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	out := new(CommandResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/SendCommand", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) SyncServerConfig(ctx context.Context, in *SyncConfigRequest, opts ...grpc.CallOption) (*SyncConfigResponse, error) {
	out := new(SyncConfigResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/SyncServerConfig", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) GetServerStatus(ctx context.Context, in *ServerStatusRequest, opts ...grpc.CallOption) (*ServerStatusResponse, error) {
	out := new(ServerStatusResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/GetServerStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) GetSystemInfo(ctx context.Context, in *SystemInfoRequest, opts ...grpc.CallOption) (*SystemInfoResponse, error) {
	out := new(SystemInfoResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/GetSystemInfo", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) UpdateResources(ctx context.Context, in *UpdateResourcesRequest, opts ...grpc.CallOption) (*UpdateResourcesResponse, error) {
	out := new(UpdateResourcesResponse)
	if err := c.cc.Invoke(ctx, "/nexus.NexusService/UpdateResources", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nexusServiceClient) EventStream(ctx context.Context, opts ...grpc.CallOption) (NexusService_EventStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &NexusServiceDesc.Streams[0], "/nexus.NexusService/EventStream", opts...)
	if err != nil {
		return nil, err
	}
	return &eventStreamClient{stream}, nil
}

// NexusService_EventStreamClient is the client-side handle for the
// bidirectional EventStream RPC.
type NexusService_EventStreamClient interface {
	Send(*WingsEvent) error
	Recv() (*PanelCommand, error)
	grpc.ClientStream
}

type eventStreamClient struct {
	grpc.ClientStream
}

func (c *eventStreamClient) Send(m *WingsEvent) error {
	return c.ClientStream.SendMsg(m)
}

func (c *eventStreamClient) Recv() (*PanelCommand, error) {
	m := new(PanelCommand)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
