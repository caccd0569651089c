package api

import (
	"context"
	"errors"
	"strings"

	"github.com/matheus3301/wppdesk/internal/dispatch"
	"github.com/matheus3301/wppdesk/internal/store"
	"github.com/matheus3301/wppdesk/internal/supervisor"
	"github.com/matheus3301/wppdesk/internal/wa"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC status codes.
func toStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *dispatch.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, dispatch.ErrEmptyContent),
		errors.Is(err, dispatch.ErrInvalidPeer),
		errors.Is(err, dispatch.ErrUnsupportedMedia),
		errors.Is(err, dispatch.ErrTooLarge):
		return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, dispatch.ErrNotConnected),
		errors.Is(err, dispatch.ErrNotRetryable),
		errors.Is(err, supervisor.ErrNoTransport):
		return grpcstatus.Errorf(codes.FailedPrecondition, "%s: %v", op, err)
	case errors.Is(err, store.ErrNotFound):
		return grpcstatus.Errorf(codes.NotFound, "%s: %v", op, err)
	case errors.Is(err, store.ErrDuplicate):
		return grpcstatus.Errorf(codes.AlreadyExists, "%s: %v", op, err)
	case errors.Is(err, context.Canceled):
		return grpcstatus.Errorf(codes.Canceled, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Errorf(codes.DeadlineExceeded, "%s: %v", op, err)
	}
	return grpcstatus.Errorf(codes.Internal, "%s: %v", op, err)
}

// peerJID accepts a JID or a bare phone number.
func peerJID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "@") {
		return wa.NormalizeJID(s)
	}
	return wa.PhoneJID(s)
}
