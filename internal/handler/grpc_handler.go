package handler

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/pesio-ai/be-relocation-cases/internal/lifecycle"
	"github.com/pesio-ai/be-relocation-cases/internal/model"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
	"github.com/pesio-ai/be-relocation-cases/internal/platform/errors"
	"github.com/pesio-ai/be-relocation-cases/internal/service"
)

// CaseWorkflowServer is the relocation.v1.CaseWorkflow service. Messages are
// google.protobuf.Struct documents with the same JSON shape as the HTTP API.
type CaseWorkflowServer interface {
	GetCase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateDraft(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitCase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DecideCase(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// CaseWorkflowServiceName is the fully qualified gRPC service name.
const CaseWorkflowServiceName = "relocation.v1.CaseWorkflow"

func unaryMethod(name string, call func(CaseWorkflowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CaseWorkflowServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + CaseWorkflowServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CaseWorkflowServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CaseWorkflowServiceDesc describes CaseWorkflowServer for grpc.Server.
var CaseWorkflowServiceDesc = grpc.ServiceDesc{
	ServiceName: CaseWorkflowServiceName,
	HandlerType: (*CaseWorkflowServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetCase", CaseWorkflowServer.GetCase),
		unaryMethod("EvaluateDraft", CaseWorkflowServer.EvaluateDraft),
		unaryMethod("SubmitCase", CaseWorkflowServer.SubmitCase),
		unaryMethod("DecideCase", CaseWorkflowServer.DecideCase),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relocation/v1/case_workflow.proto",
}

// RegisterCaseWorkflowServer registers srv on s.
func RegisterCaseWorkflowServer(s grpc.ServiceRegistrar, srv CaseWorkflowServer) {
	s.RegisterService(&CaseWorkflowServiceDesc, srv)
}

// GRPCHandler implements the CaseWorkflow gRPC interface
type GRPCHandler struct {
	cases  *service.CaseService
	logger zerolog.Logger
}

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(cases *service.CaseService, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{
		cases:  cases,
		logger: logger.With().Str("handler", "grpc").Logger(),
	}
}

type caseRef struct {
	ID string `json:"id"`
}

// GetCase returns one case visible to the caller.
func (h *GRPCHandler) GetCase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := grpcSession(ctx)
	if err != nil {
		return nil, err
	}
	var in caseRef
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	h.logger.Debug().Str("case_id", in.ID).Msg("gRPC GetCase called")

	c, err := h.cases.GetCase(ctx, sess, in.ID)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return toStruct(c)
}

// EvaluateDraft scores a draft without persisting it. The request is the
// draft document itself.
func (h *GRPCHandler) EvaluateDraft(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := grpcSession(ctx); err != nil {
		return nil, err
	}
	var draft model.Draft
	if err := fromStruct(req, &draft); err != nil {
		return nil, err
	}
	return toStruct(h.cases.EvaluateDraft(draft))
}

// SubmitCase hands an intake to HR.
func (h *GRPCHandler) SubmitCase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := grpcSession(ctx)
	if err != nil {
		return nil, err
	}
	var in caseRef
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	h.logger.Info().Str("case_id", in.ID).Str("user_id", sess.UserID).Msg("gRPC SubmitCase called")

	c, err := h.cases.SubmitCase(ctx, sess, in.ID)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return toStruct(c)
}

// DecideCase applies an HR verdict.
func (h *GRPCHandler) DecideCase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := grpcSession(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		ID                string   `json:"id"`
		Decision          string   `json:"decision"`
		Notes             string   `json:"notes"`
		RequestedSections []string `json:"requestedSections"`
	}
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("case_id", in.ID).
		Str("decision", in.Decision).
		Str("user_id", sess.UserID).
		Msg("gRPC DecideCase called")

	c, err := h.cases.DecideCase(ctx, sess, &service.DecisionRequest{
		CaseID:            in.ID,
		Decision:          lifecycle.Verdict(in.Decision),
		Notes:             in.Notes,
		RequestedSections: in.RequestedSections,
	})
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return toStruct(c)
}

// ── conversion ────────────────────────────────────────────────────────────────

func grpcSession(ctx context.Context) (auth.Session, error) {
	sess, err := auth.FromContext(ctx)
	if err != nil {
		return auth.Session{}, status.Error(codes.Unauthenticated, "missing session")
	}
	return sess, nil
}

func fromStruct(s *structpb.Struct, v interface{}) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func mapErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	errMsg := err.Error()

	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		return status.Error(codes.NotFound, errMsg)
	case errors.ErrCodeInvalidInput:
		return status.Error(codes.InvalidArgument, errMsg)
	case errors.ErrCodeUnauthorized:
		return status.Error(codes.Unauthenticated, errMsg)
	case errors.ErrCodeForbidden:
		return status.Error(codes.PermissionDenied, errMsg)
	case errors.ErrCodeConflict:
		return status.Error(codes.FailedPrecondition, errMsg)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
