package provider

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

// ClassifyError maps a transport or extractor error onto the failure taxonomy.
func ClassifyError(err error) domain.FailureReason {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return reasonFromCode(st.Code())
	}

	s := strings.ToLower(err.Error())

	switch {
	case strings.Contains(s, "unsupported url"), strings.Contains(s, "not supported"):
		return domain.ReasonUnsupported
	case strings.Contains(s, "timed out"), strings.Contains(s, "timeout"):
		return domain.ReasonTimeout
	case strings.Contains(s, "429"), strings.Contains(s, "too many requests"),
		strings.Contains(s, "rate limit"), strings.Contains(s, "quota"),
		strings.Contains(s, "service unavailable"), strings.Contains(s, "try again"):
		return domain.ReasonTransient
	case strings.Contains(s, "private video"), strings.Contains(s, "login required"),
		strings.Contains(s, "invalid url"), strings.Contains(s, "403"), strings.Contains(s, "forbidden"):
		return domain.ReasonInputRejected
	case strings.Contains(s, "no video"), strings.Contains(s, "not found"),
		strings.Contains(s, "404"), strings.Contains(s, "unavailable"):
		return domain.ReasonNoArtifactFound
	}

	// Network, 5xx and anything unrecognized
	return domain.ReasonTransient
}

func reasonFromCode(code codes.Code) domain.FailureReason {
	switch code {
	case codes.DeadlineExceeded:
		return domain.ReasonTimeout
	case codes.Unimplemented:
		return domain.ReasonUnsupported
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied, codes.Unauthenticated:
		return domain.ReasonInputRejected
	case codes.NotFound:
		return domain.ReasonNoArtifactFound
	default:
		return domain.ReasonTransient
	}
}

// ReasonForStatus maps a non-2xx HTTP status code onto the failure taxonomy.
func ReasonForStatus(code int) domain.FailureReason {
	switch {
	case code == 429 || code >= 500:
		return domain.ReasonTransient
	case code == 404:
		return domain.ReasonNoArtifactFound
	case code == 408:
		return domain.ReasonTimeout
	default:
		return domain.ReasonInputRejected
	}
}
