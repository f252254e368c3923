package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/redbco/wings/pkg/adapter"
)

var kindCodes = map[adapter.Kind]codes.Code{
	adapter.KindNotFound:      codes.NotFound,
	adapter.KindBadRequest:    codes.InvalidArgument,
	adapter.KindForbidden:     codes.PermissionDenied,
	adapter.KindUnavailable:   codes.Unavailable,
	adapter.KindUnprocessable: codes.FailedPrecondition,
	adapter.KindGeneral:       codes.Internal,
}

// CodeOf returns the gRPC code for an error kind.
func CodeOf(kind adapter.Kind) codes.Code {
	if c, ok := kindCodes[kind]; ok {
		return c
	}
	return codes.Internal
}

// KindOfCode returns the error kind for a gRPC code.
func KindOfCode(c codes.Code) adapter.Kind {
	switch c {
	case codes.NotFound:
		return adapter.KindNotFound
	case codes.InvalidArgument:
		return adapter.KindBadRequest
	case codes.PermissionDenied, codes.Unauthenticated:
		return adapter.KindForbidden
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted:
		return adapter.KindUnavailable
	case codes.FailedPrecondition:
		return adapter.KindUnprocessable
	}
	return adapter.KindGeneral
}

// toStatus converts a classified error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isAdapterError(err) {
		return err
	}
	return status.Error(CodeOf(adapter.KindOf(err)), err.Error())
}

func isAdapterError(err error) bool {
	var ae *adapter.Error
	return errors.As(err, &ae)
}

// fromStatus converts a gRPC error back into an *adapter.Error.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return adapter.NewUnavailable("%v", err)
	}
	return &adapter.Error{
		Kind:    KindOfCode(st.Code()),
		Message: st.Message(),
		Cause:   err,
	}
}
