package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vietddude/mediafetch/internal/core/domain"
)

// DefaultExtractMethod is the full method name invoked when none is configured.
const DefaultExtractMethod = "/extractor.v1.Extractor/Extract"

// GRPCAdapter calls a remote extractor with a generic Struct request and response,
// so no generated client is required.
type GRPCAdapter struct {
	*Base
	method string
	conn   grpc.ClientConnInterface
	closer func() error
}

// NewGRPCAdapter creates a client for endpoint. The connection is established lazily.
func NewGRPCAdapter(tag, endpoint, method string, platforms []domain.Category) (*GRPCAdapter, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}

	a := NewGRPCAdapterWithConn(tag, conn, method, platforms)
	a.closer = conn.Close
	return a, nil
}

// NewGRPCAdapterWithConn wraps an existing connection.
func NewGRPCAdapterWithConn(tag string, conn grpc.ClientConnInterface, method string, platforms []domain.Category) *GRPCAdapter {
	if method == "" {
		method = DefaultExtractMethod
	}
	return &GRPCAdapter{
		Base:   NewBase(tag, platforms),
		method: method,
		conn:   conn,
	}
}

// Attempt implements Adapter.
func (a *GRPCAdapter) Attempt(ctx context.Context, req domain.Request, timeout time.Duration) domain.AdapterResult {
	if res, ok := a.precheck(req); !ok {
		return res
	}

	timeout = a.clampTimeout(timeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res := a.invoke(ctx, req)
	a.record(res, time.Since(start))
	return res
}

func (a *GRPCAdapter) invoke(ctx context.Context, req domain.Request) domain.AdapterResult {
	in, err := structpb.NewStruct(map[string]any{
		"url":        req.RawInput,
		"category":   string(req.Category),
		"request_id": req.ID,
	})
	if err != nil {
		return domain.Failed(domain.ReasonInputRejected, fmt.Sprintf("build request: %v", err))
	}

	out := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, a.method, in, out); err != nil {
		return a.failure(err)
	}

	fields := out.GetFields()
	str := func(key string) string {
		return fields[key].GetStringValue()
	}

	link := str("download_url")
	if link == "" {
		link = str("url")
	}
	if link == "" {
		msg := str("error")
		if msg == "" {
			msg = "extractor returned no url"
		}
		return domain.Failed(ClassifyMessage(msg, domain.ReasonNoArtifactFound), msg)
	}

	return domain.Succeeded(domain.Success{
		ArtifactRef: link,
		MethodTag:   "grpc_extractor",
		ProviderTag: a.Tag(),
		Quality:     str("quality"),
		Filename:    str("filename"),
		Title:       str("title"),
		ContentType: str("content_type"),
	})
}

func (a *GRPCAdapter) failure(err error) domain.AdapterResult {
	st, ok := status.FromError(err)
	if ok {
		for _, d := range st.Details() {
			if info, isRetry := d.(*errdetails.RetryInfo); isRetry {
				secs := int(info.GetRetryDelay().AsDuration() / time.Second)
				a.Monitor.RecordThrottle(429, fmt.Sprint(secs))
				return domain.Failed(domain.ReasonTransient, st.Message())
			}
		}
		return domain.Failed(ClassifyError(err), st.Message())
	}
	return domain.Failed(ClassifyError(err), err.Error())
}

// Close cleans up resources.
func (a *GRPCAdapter) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}
