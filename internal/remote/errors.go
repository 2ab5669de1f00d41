package remote

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
)

// MapRPCError translates a transport error into the engine's sentinel errors.
// Unknown codes are wrapped so the original status is preserved.
func MapRPCError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	case codes.NotFound:
		return common.ErrNotFound
	case codes.AlreadyExists:
		return common.ErrDuplicateIdentity
	case codes.Aborted, codes.FailedPrecondition:
		return common.ErrVersionConflict
	case codes.InvalidArgument:
		return common.ErrValidation
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
