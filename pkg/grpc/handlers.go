package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/battery-rental-service/pkg/auth"
	"liyu1981.xyz/battery-rental-service/pkg/common"
	"liyu1981.xyz/battery-rental-service/pkg/rental"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{rental.ErrNotFound, codes.NotFound},
	{rental.ErrConflictingSession, codes.AlreadyExists},
	{rental.ErrInvalidTransition, codes.FailedPrecondition},
	{rental.ErrInvalidState, codes.FailedPrecondition},
	{rental.ErrUnavailable, codes.FailedPrecondition},
	{rental.ErrOutOfRange, codes.OutOfRange},
	{rental.ErrInvalidInput, codes.InvalidArgument},
	{rental.ErrTransient, codes.Unavailable},
}

func toStatus(err error) error {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}
	common.GetLoggerWith(common.LoggerNameGrpcServer).Warn("Call failed", zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}

// toStruct renders v the way the REST API does, through its json tags.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func invalidArgument(issues z.ZogIssueList) error {
	return status.Errorf(codes.InvalidArgument, "validation error: %v", issues)
}

// idField reads a positive whole number field of req.
func idField(req *structpb.Struct, name string) (uint, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	n := v.GetNumberValue()
	if n < 1 || n != math.Trunc(n) || n > math.MaxUint32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", name)
	}
	return uint(n), nil
}

func (s *UsageServer) CurrentUsage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.Rental.Usage.CurrentUsage(ctx, p.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	if snapshot == nil {
		return structpb.NewStruct(map[string]any{"usage": nil})
	}

	usage, err := toStruct(snapshot)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"usage": structpb.NewStructValue(usage)}}, nil
}

func (s *UsageServer) ToggleDischarge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	usageID, err := idField(req, "usage_id")
	if err != nil {
		return nil, err
	}

	action := req.GetFields()["action"].GetStringValue()
	if issues := z.String().Required().OneOf([]string{"start", "stop"}).Validate(&action); issues != nil {
		return nil, invalidArgument(issues)
	}

	snapshot, err := s.Rental.Usage.ToggleDischarge(ctx, p.UserID, usageID, action)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(snapshot)
}

func (s *UsageServer) SetCharge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	usageID, err := idField(req, "usage_id")
	if err != nil {
		return nil, err
	}

	v, ok := req.GetFields()["charge"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "charge is required")
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) {
		return nil, status.Errorf(codes.InvalidArgument, "charge must be a whole number, got %v", n)
	}

	snapshot, err := s.Rental.Usage.SetCharge(ctx, p.UserID, usageID, int(n))
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(snapshot)
}

func (s *UsageServer) ActivateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	orderID, err := idField(req, "order_id")
	if err != nil {
		return nil, err
	}

	snapshot, err := s.Rental.Order.ActivateOrder(ctx, p.UserID, orderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(snapshot)
}

func (s *UsageServer) CompleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	orderID, err := idField(req, "order_id")
	if err != nil {
		return nil, err
	}

	receipt, err := s.Rental.Order.CompleteOrder(ctx, p.UserID, orderID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(receipt)
}
