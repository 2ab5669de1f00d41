// Package retry classifies sync failures, computes backoff, and builds the
// recovery report surfaced to callers.
package retry

import (
	"context"
	"errors"
	"net"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
	"github.com/philipmoss2002/life-app-sub008/internal/remote"
)

// Class is a failure class with a fixed retry policy.
type Class string

const (
	// ClassTransient covers network, timeout and storage failures. Retried
	// with exponential backoff.
	ClassTransient Class = "transient"
	// ClassAuth covers expired or rejected credentials. Retried once after
	// a token refresh.
	ClassAuth Class = "auth"
	// ClassConflict is an optimistic-concurrency mismatch. Never blindly
	// retried: it is routed to conflict resolution instead.
	ClassConflict Class = "conflict"
	// ClassNotFound means the remote copy is gone, typically deleted
	// out-of-band. Non-recoverable.
	ClassNotFound Class = "not_found"
	// ClassValidation is a caller error; retrying cannot fix it.
	ClassValidation Class = "validation"
)

// Retryable reports whether the class participates in automatic retry.
func (c Class) Retryable() bool {
	return c == ClassTransient || c == ClassAuth
}

// Classify assigns a failure class to err. Transport status codes are
// translated to sentinel errors first, so gRPC failures and local sentinel
// failures classify identically. Unknown errors classify as transient.
func Classify(err error) Class {
	err = remote.MapRPCError(err)

	switch {
	case errors.Is(err, common.ErrVersionConflict):
		return ClassConflict
	case errors.Is(err, common.ErrNotFound):
		return ClassNotFound
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		return ClassAuth
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrMissingSyncID),
		errors.Is(err, common.ErrMalformedSyncID),
		errors.Is(err, common.ErrDuplicateIdentity),
		errors.Is(err, common.ErrInvalidStateTransition):
		return ClassValidation
	case errors.Is(err, common.ErrUnavailable),
		errors.Is(err, common.ErrStorage),
		errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	return ClassTransient
}
