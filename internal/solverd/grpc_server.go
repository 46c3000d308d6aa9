package solverd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/simplexviz/simplex-core/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of simplex.v1.SolverService.
const (
	SolverServiceName    = "simplex.v1.SolverService"
	SolverSolveMethod    = "/simplex.v1.SolverService/Solve"
	SolverGetSolveMethod = "/simplex.v1.SolverService/GetSolve"
)

// SolverServiceServer is the server API of simplex.v1.SolverService. Both
// messages are google.protobuf.Struct documents carrying the JSON schema.
type SolverServiceServer interface {
	// Solve takes a solve request and returns {id, result}.
	Solve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetSolve takes {id} and returns the stored record.
	GetSolve(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// SolverServiceDesc describes simplex.v1.SolverService for grpc.Server.
var SolverServiceDesc = grpc.ServiceDesc{
	ServiceName: SolverServiceName,
	HandlerType: (*SolverServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Solve", Handler: solveHandler},
		{MethodName: "GetSolve", Handler: getSolveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "simplex/v1/solver.proto",
}

// RegisterSolverServiceServer registers srv on s.
func RegisterSolverServiceServer(s grpc.ServiceRegistrar, srv SolverServiceServer) {
	s.RegisterService(&SolverServiceDesc, srv)
}

func solveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServiceServer).Solve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SolverSolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SolverServiceServer).Solve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSolveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServiceServer).GetSolve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SolverGetSolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SolverServiceServer).GetSolve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// SolverGRPCServer implements SolverServiceServer on top of a Service.
type SolverGRPCServer struct {
	service *Service
}

// NewSolverGRPCServer creates a gRPC front end for service.
func NewSolverGRPCServer(service *Service) *SolverGRPCServer {
	return &SolverGRPCServer{service: service}
}

func (s *SolverGRPCServer) Solve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	data, err := in.MarshalJSON()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := DecodeRequest(data)
	if err != nil {
		return nil, toStatus(err)
	}

	rec, err := s.service.SolveAndRecord(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	logger.Debug("solve served (gRPC)", "solve_id", rec.ID)
	return toStruct(map[string]any{"id": rec.ID, "result": rec.Result})
}

func (s *SolverGRPCServer) GetSolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := ""
	if in != nil {
		id = in.GetFields()["id"].GetStringValue()
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	rec, err := s.service.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(rec)
}

// toStruct round-trips v through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(err error) error {
	code, kind := classify(err)
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return status.Error(codes.InvalidArgument, kind+": "+err.Error())
	case http.StatusNotFound:
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, kind+": "+err.Error())
	}
}

// SolverClient is a client for simplex.v1.SolverService.
type SolverClient struct {
	cc grpc.ClientConnInterface
}

func NewSolverClient(cc grpc.ClientConnInterface) *SolverClient {
	return &SolverClient{cc: cc}
}

// Solve sends a request document and returns {id, result}.
func (c *SolverClient) Solve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SolverSolveMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSolve fetches a stored solve by ID.
func (c *SolverClient) GetSolve(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SolverGetSolveMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestStruct converts a request into a Struct for SolverClient.Solve.
func RequestStruct(req *SolveRequest) (*structpb.Struct, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return out, nil
}
