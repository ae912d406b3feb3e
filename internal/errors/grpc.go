package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToGRPCError converts an error to a gRPC status error
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var e *Error
	if As(err, &e) {
		return status.Error(e.Code.GRPCCode(), e.Message)
	}
	return status.Error(codes.Internal, err.Error())
}

// FromGRPCError converts a gRPC status error back to a coded error
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return &Error{Code: codeFromGRPC(st.Code()), Message: st.Message()}
}
