package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifiesGRPCCodes(t *testing.T) {
	cases := []struct {
		name        string
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "not found", code: codes.NotFound, notFound: true},
		{name: "already exists", code: codes.AlreadyExists, conflict: true},
		{name: "failed precondition", code: codes.FailedPrecondition, conflict: true},
		{name: "aborted", code: codes.Aborted, conflict: true},
		{name: "unavailable", code: codes.Unavailable, unavailable: true},
		{name: "resource exhausted", code: codes.ResourceExhausted, unavailable: true},
		{name: "internal", code: codes.Internal, unavailable: true},
		{name: "unknown", code: codes.Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapError("orders.get", status.Error(tc.code, "boom"))

			var repoErr *Error
			if !errors.As(wrapped, &repoErr) {
				t.Fatalf("WrapError returned %T, want *Error", wrapped)
			}
			if repoErr.IsNotFound() != tc.notFound {
				t.Errorf("IsNotFound = %v, want %v", repoErr.IsNotFound(), tc.notFound)
			}
			if repoErr.IsConflict() != tc.conflict {
				t.Errorf("IsConflict = %v, want %v", repoErr.IsConflict(), tc.conflict)
			}
			if repoErr.IsUnavailable() != tc.unavailable {
				t.Errorf("IsUnavailable = %v, want %v", repoErr.IsUnavailable(), tc.unavailable)
			}
		})
	}
}

func TestWrapErrorPassesThroughCancellation(t *testing.T) {
	if got := WrapError("orders.get", context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("context.Canceled wrapped to %v", got)
	}
	if got := WrapError("orders.get", status.Error(codes.Canceled, "rpc canceled")); !errors.Is(got, context.Canceled) {
		t.Errorf("grpc Canceled wrapped to %v", got)
	}
	if got := WrapError("orders.get", status.Error(codes.DeadlineExceeded, "rpc timeout")); !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("grpc DeadlineExceeded wrapped to %v", got)
	}
}

func TestWrapErrorKeepsExistingClassification(t *testing.T) {
	inner := WrapError("", status.Error(codes.NotFound, "missing"))
	outer := WrapError("users.get", inner)

	var repoErr *Error
	if !errors.As(outer, &repoErr) {
		t.Fatalf("outer error %T, want *Error", outer)
	}
	if !repoErr.IsNotFound() {
		t.Error("classification lost when rewrapping")
	}
	if got := repoErr.Error(); got != "users.get: rpc error: code = NotFound desc = missing" {
		t.Errorf("message = %q", got)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError("orders.get", nil) != nil {
		t.Error("nil error must stay nil")
	}
}
