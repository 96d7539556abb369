package disperser

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jacktea/eigenkv/pkg/xerrors"
)

var errEmptyRequestID = errors.New("disperser returned an empty request id")

// mapRPC classifies a gRPC failure. The status error stays in the chain.
func mapRPC(op, ref string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return xerrors.Wrap(xerrors.KindOf(err), op, ref, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return xerrors.Wrap(xerrors.KindNotFound, op, ref, err)
	case codes.InvalidArgument:
		return xerrors.Wrap(xerrors.KindInvalid, op, ref, err)
	case codes.Canceled:
		return xerrors.Wrap(xerrors.KindCanceled, op, ref, err)
	default:
		return xerrors.Wrap(xerrors.KindTransport, op, ref, err)
	}
}

// toStatus converts an error raised by a blob.Transport into a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	switch xerrors.KindOf(err) {
	case xerrors.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case xerrors.KindInvalid, xerrors.KindPayloadTooLarge:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
