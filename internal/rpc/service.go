// Package rpc also carries the hand-maintained NodeService client/server
// stubs that would normally come out of protoc-gen-go-grpc. No protoc step
// is wired into this tree's build (see codec.go), so the service
// descriptor, per-method handler functions, and client implementation below
// are authored directly in the shape protoc-gen-go-grpc produces, and every
// call forces the gob codec so the real google.golang.org/grpc stack still
// does the dialing, interceptor, and streaming work.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"pastryring/internal/rpc/codec"
)

// ServiceName is the fully qualified NodeService name used to build method
// paths.
const ServiceName = "pastry.NodeService"

// NodeServiceClient is the outbound half of the NodeService surface (spec
// §6's RPC table).
type NodeServiceClient interface {
	GetNodeState(ctx context.Context, in *GetNodeStateRequest, opts ...grpc.CallOption) (*GetNodeStateResponse, error)
	GetNodeTableEntry(ctx context.Context, in *GetNodeTableEntryRequest, opts ...grpc.CallOption) (*GetNodeTableEntryResponse, error)
	Join(ctx context.Context, in *JoinRequest, opts ...grpc.CallOption) (*JoinResponse, error)
	Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error)
	TransferKeys(ctx context.Context, in *TransferKeysRequest, opts ...grpc.CallOption) (NodeService_TransferKeysClient, error)
	AnnounceArrival(ctx context.Context, in *AnnounceArrivalRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	FixLeafSet(ctx context.Context, in *FixLeafSetRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

// NodeServiceServer is the inbound half, implemented by internal/node's
// controller.
type NodeServiceServer interface {
	GetNodeState(context.Context, *GetNodeStateRequest) (*GetNodeStateResponse, error)
	GetNodeTableEntry(context.Context, *GetNodeTableEntryRequest) (*GetNodeTableEntryResponse, error)
	Join(context.Context, *JoinRequest) (*JoinResponse, error)
	Query(context.Context, *QueryRequest) (*QueryResponse, error)
	TransferKeys(*TransferKeysRequest, NodeService_TransferKeysServer) error
	AnnounceArrival(context.Context, *AnnounceArrivalRequest) (*emptypb.Empty, error)
	FixLeafSet(context.Context, *FixLeafSetRequest) (*emptypb.Empty, error)
}

// UnimplementedNodeServiceServer may be embedded in a NodeServiceServer
// implementation to satisfy the interface for methods it doesn't provide,
// the way protoc-gen-go-grpc's forward-compatible embedding does.
type UnimplementedNodeServiceServer struct{}

func (UnimplementedNodeServiceServer) GetNodeState(context.Context, *GetNodeStateRequest) (*GetNodeStateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNodeState not implemented")
}
func (UnimplementedNodeServiceServer) GetNodeTableEntry(context.Context, *GetNodeTableEntryRequest) (*GetNodeTableEntryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNodeTableEntry not implemented")
}
func (UnimplementedNodeServiceServer) Join(context.Context, *JoinRequest) (*JoinResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Join not implemented")
}
func (UnimplementedNodeServiceServer) Query(context.Context, *QueryRequest) (*QueryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Query not implemented")
}
func (UnimplementedNodeServiceServer) TransferKeys(*TransferKeysRequest, NodeService_TransferKeysServer) error {
	return status.Error(codes.Unimplemented, "method TransferKeys not implemented")
}
func (UnimplementedNodeServiceServer) AnnounceArrival(context.Context, *AnnounceArrivalRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method AnnounceArrival not implemented")
}
func (UnimplementedNodeServiceServer) FixLeafSet(context.Context, *FixLeafSetRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method FixLeafSet not implemented")
}

type nodeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewNodeServiceClient wraps a dialed connection (typically retrieved from
// connpool.Pool) as a NodeServiceClient.
func NewNodeServiceClient(cc grpc.ClientConnInterface) NodeServiceClient {
	return &nodeServiceClient{cc: cc}
}

func method(name string) string { return "/" + ServiceName + "/" + name }

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append(opts, codec.ForceCodec())
}

func (c *nodeServiceClient) GetNodeState(ctx context.Context, in *GetNodeStateRequest, opts ...grpc.CallOption) (*GetNodeStateResponse, error) {
	out := new(GetNodeStateResponse)
	if err := c.cc.Invoke(ctx, method("GetNodeState"), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) GetNodeTableEntry(ctx context.Context, in *GetNodeTableEntryRequest, opts ...grpc.CallOption) (*GetNodeTableEntryResponse, error) {
	out := new(GetNodeTableEntryResponse)
	if err := c.cc.Invoke(ctx, method("GetNodeTableEntry"), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) Join(ctx context.Context, in *JoinRequest, opts ...grpc.CallOption) (*JoinResponse, error) {
	out := new(JoinResponse)
	if err := c.cc.Invoke(ctx, method("Join"), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) Query(ctx context.Context, in *QueryRequest, opts ...grpc.CallOption) (*QueryResponse, error) {
	out := new(QueryResponse)
	if err := c.cc.Invoke(ctx, method("Query"), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) AnnounceArrival(ctx context.Context, in *AnnounceArrivalRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, method("AnnounceArrival"), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeServiceClient) FixLeafSet(ctx context.Context, in *FixLeafSetRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, method("FixLeafSet"), in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// NodeService_TransferKeysClient streams the (key, value) pairs a
// TransferKeys call returns.
type NodeService_TransferKeysClient interface {
	Recv() (*TransferKeysEntry, error)
	grpc.ClientStream
}

func (c *nodeServiceClient) TransferKeys(ctx context.Context, in *TransferKeysRequest, opts ...grpc.CallOption) (NodeService_TransferKeysClient, error) {
	stream, err := c.cc.NewStream(ctx, &nodeServiceTransferKeysDesc, method("TransferKeys"), withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &nodeServiceTransferKeysClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type nodeServiceTransferKeysClient struct {
	grpc.ClientStream
}

func (x *nodeServiceTransferKeysClient) Recv() (*TransferKeysEntry, error) {
	m := new(TransferKeysEntry)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NodeService_TransferKeysServer is the send half of the TransferKeys
// server stream, implemented by internal/node's controller handler.
type NodeService_TransferKeysServer interface {
	Send(*TransferKeysEntry) error
	grpc.ServerStream
}

type nodeServiceTransferKeysServer struct {
	grpc.ServerStream
}

func (x *nodeServiceTransferKeysServer) Send(m *TransferKeysEntry) error {
	return x.ServerStream.SendMsg(m)
}

func _NodeService_GetNodeState_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetNodeStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).GetNodeState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method("GetNodeState")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).GetNodeState(ctx, req.(*GetNodeStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_GetNodeTableEntry_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetNodeTableEntryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).GetNodeTableEntry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method("GetNodeTableEntry")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).GetNodeTableEntry(ctx, req.(*GetNodeTableEntryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_Join_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(JoinRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).Join(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method("Join")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).Join(ctx, req.(*JoinRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_Query_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method("Query")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_AnnounceArrival_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AnnounceArrivalRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).AnnounceArrival(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method("AnnounceArrival")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).AnnounceArrival(ctx, req.(*AnnounceArrivalRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_FixLeafSet_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FixLeafSetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeServiceServer).FixLeafSet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method("FixLeafSet")}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeServiceServer).FixLeafSet(ctx, req.(*FixLeafSetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_TransferKeys_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(TransferKeysRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(NodeServiceServer).TransferKeys(m, &nodeServiceTransferKeysServer{stream})
}

var nodeServiceTransferKeysDesc = grpc.StreamDesc{
	StreamName:    "TransferKeys",
	ServerStreams: true,
}

// ServiceDesc is the grpc.ServiceDesc protoc-gen-go-grpc would otherwise
// generate from a .proto file describing NodeService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetNodeState", Handler: _NodeService_GetNodeState_Handler},
		{MethodName: "GetNodeTableEntry", Handler: _NodeService_GetNodeTableEntry_Handler},
		{MethodName: "Join", Handler: _NodeService_Join_Handler},
		{MethodName: "Query", Handler: _NodeService_Query_Handler},
		{MethodName: "AnnounceArrival", Handler: _NodeService_AnnounceArrival_Handler},
		{MethodName: "FixLeafSet", Handler: _NodeService_FixLeafSet_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "TransferKeys",
			Handler:       _NodeService_TransferKeys_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "internal/rpc/service.go",
}

// RegisterNodeServiceServer registers srv against s, the way
// protoc-gen-go-grpc's Register<Service>Server would.
func RegisterNodeServiceServer(s grpc.ServiceRegistrar, srv NodeServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
