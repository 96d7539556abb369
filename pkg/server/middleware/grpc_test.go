package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/disperser.Disperser/GetBlobStatus"}

func okHandler(ctx context.Context, req any) (any, error) { return "ok", nil }

func TestAPIKeyAuth(t *testing.T) {
	auth := APIKeyAuth("secret")
	if _, err := auth(context.Background(), nil, testInfo, okHandler); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
	for _, md := range []metadata.MD{
		metadata.Pairs("x-api-key", "secret"),
		metadata.Pairs("authorization", "Bearer secret"),
	} {
		ctx := metadata.NewIncomingContext(context.Background(), md)
		if _, err := auth(ctx, nil, testInfo, okHandler); err != nil {
			t.Fatalf("expected success for %v, got %v", md, err)
		}
	}
	if APIKeyAuth("  ") != nil {
		t.Fatalf("blank key should disable auth")
	}
}

func TestAPIKeyClientInterceptor(t *testing.T) {
	var got []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get("x-api-key")
		return nil
	}
	if err := APIKey("secret")(context.Background(), "/m", nil, nil, nil, invoker); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(got) != 1 || got[0] != "secret" {
		t.Fatalf("unexpected metadata %v", got)
	}
}

func TestRateLimit(t *testing.T) {
	current := time.Unix(0, 0)
	limit := RateLimit(RateLimitOptions{
		Requests: 1,
		Window:   time.Second,
		Now:      func() time.Time { return current },
	})
	ctx := context.Background()
	if _, err := limit(ctx, nil, testInfo, okHandler); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := limit(ctx, nil, testInfo, okHandler); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
	current = current.Add(time.Second)
	if _, err := limit(ctx, nil, testInfo, okHandler); err != nil {
		t.Fatalf("after refill: %v", err)
	}
	if RateLimit(RateLimitOptions{}) != nil {
		t.Fatalf("zero options should disable rate limiting")
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logged := Logging(logger)
	failing := func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "missing")
	}
	if _, err := logged(context.Background(), nil, testInfo, failing); status.Code(err) != codes.NotFound {
		t.Fatalf("error not passed through: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "code=NotFound") || !strings.Contains(out, testInfo.FullMethod) {
		t.Fatalf("unexpected log line %q", out)
	}
}
