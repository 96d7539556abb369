package disperser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/da"
	"github.com/jacktea/eigenkv/pkg/server/middleware"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

func startBufnet(t *testing.T, tr blob.Transport) *Client {
	t.Helper()
	return startBufnetWith(t, tr, nil)
}

func startBufnetWith(t *testing.T, tr blob.Transport, serverOpts []grpc.ServerOption, dialOpts ...grpc.DialOption) *Client {
	t.Helper()
	lis := bufconn.Listen(4 << 20)
	srv := grpc.NewServer(append(ServerOptions(), serverOpts...)...)
	(&Server{Transport: tr, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}).Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial(Config{
		Target:      "passthrough:///bufnet",
		Insecure:    true,
		Timeout:     2 * time.Second,
		DialOptions: append([]grpc.DialOption{grpc.WithContextDialer(dialer)}, dialOpts...),
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientServerLifecycle(t *testing.T) {
	local, err := blob.NewLocalTransport(blob.LocalConfig{Root: t.TempDir(), ConfirmAfter: 2})
	if err != nil {
		t.Fatalf("NewLocalTransport: %v", err)
	}
	client := startBufnet(t, local)
	ctx := context.Background()

	reply, err := client.Disperse(ctx, []byte("encoded blob"))
	if err != nil {
		t.Fatalf("Disperse: %v", err)
	}
	if len(reply.RequestID) == 0 {
		t.Fatalf("empty request id")
	}

	st, err := client.PollStatus(ctx, reply.RequestID)
	if err != nil {
		t.Fatalf("PollStatus: %v", err)
	}
	if st.Index != nil {
		t.Fatalf("placed too early: %+v", st)
	}
	st, err = client.PollStatus(ctx, reply.RequestID)
	if err != nil {
		t.Fatalf("PollStatus: %v", err)
	}
	if st.Status != blob.StatusConfirmed || st.Index == nil || len(st.BatchTag) == 0 {
		t.Fatalf("unexpected status %+v", st)
	}

	data, err := client.Retrieve(ctx, *st.Index, st.BatchTag)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(data) != "encoded blob" {
		t.Fatalf("Retrieve = %q", data)
	}
}

func TestClientMapsRemoteErrors(t *testing.T) {
	local, err := blob.NewLocalTransport(blob.LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalTransport: %v", err)
	}
	client := startBufnet(t, local)
	ctx := context.Background()

	_, err = client.Retrieve(ctx, 3, []byte{0x01})
	if !xerrors.Has(err, xerrors.KindNotFound) {
		t.Fatalf("Retrieve missing: %v", err)
	}
	_, err = client.PollStatus(ctx, []byte("unknown"))
	if !xerrors.Has(err, xerrors.KindNotFound) {
		t.Fatalf("PollStatus unknown: %v", err)
	}
	_, err = client.Disperse(ctx, nil)
	if !xerrors.Has(err, xerrors.KindInvalid) {
		t.Fatalf("Disperse empty: %v", err)
	}
}

func TestServerInterceptors(t *testing.T) {
	local, err := blob.NewLocalTransport(blob.LocalConfig{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalTransport: %v", err)
	}
	guard := []grpc.ServerOption{middleware.Chain(middleware.APIKeyAuth("devnet-key"))}
	ctx := context.Background()

	anonymous := startBufnetWith(t, local, guard)
	_, err = anonymous.Disperse(ctx, []byte("data"))
	if status.Code(errors.Unwrap(err)) != codes.Unauthenticated || !xerrors.Has(err, xerrors.KindTransport) {
		t.Fatalf("expected unauthenticated transport error, got %v", err)
	}

	keyed := startBufnetWith(t, local, guard, grpc.WithUnaryInterceptor(middleware.APIKey("devnet-key")))
	if _, err := keyed.Disperse(ctx, []byte("data")); err != nil {
		t.Fatalf("Disperse with key: %v", err)
	}
}

func TestDAClientOverGRPC(t *testing.T) {
	local, err := blob.NewLocalTransport(blob.LocalConfig{Root: t.TempDir(), ConfirmAfter: 2})
	if err != nil {
		t.Fatalf("NewLocalTransport: %v", err)
	}
	transport := startBufnet(t, local)
	client, err := da.New(da.Config{
		Transport:    transport,
		PollInterval: 5 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("da.New: %v", err)
	}
	defer client.Close()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	ctx := context.Background()
	id, err := client.Put(ctx, record{Name: "grpc", Count: 3}, &da.PutOptions{MaxTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := da.GetValue[record](ctx, client, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "grpc" || got.Count != 3 {
		t.Fatalf("Get = %+v", got)
	}
}

func TestMapRPC(t *testing.T) {
	cases := []struct {
		code codes.Code
		want xerrors.Kind
	}{
		{codes.NotFound, xerrors.KindNotFound},
		{codes.InvalidArgument, xerrors.KindInvalid},
		{codes.Canceled, xerrors.KindCanceled},
		{codes.Unavailable, xerrors.KindTransport},
		{codes.Internal, xerrors.KindTransport},
	}
	for _, tc := range cases {
		err := mapRPC("op", "ref", status.Error(tc.code, "boom"))
		if got := xerrors.KindOf(err); got != tc.want {
			t.Fatalf("%v: kind = %v, want %v", tc.code, got, tc.want)
		}
		if status.Code(errors.Unwrap(err)) != tc.code {
			t.Fatalf("%v: status lost from chain", tc.code)
		}
	}
	if mapRPC("op", "", nil) != nil {
		t.Fatalf("nil error mapped")
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{xerrors.E(xerrors.KindNotFound, "op", "x"), codes.NotFound},
		{xerrors.E(xerrors.KindInvalid, "op", "x"), codes.InvalidArgument},
		{xerrors.E(xerrors.KindInternal, "op", "x"), codes.Internal},
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus(tc.err)); got != tc.want {
			t.Fatalf("%v: code = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestTarget(t *testing.T) {
	if got, err := Target("holesky", ""); err != nil || got != HoleskyTarget {
		t.Fatalf("holesky = %q, %v", got, err)
	}
	if got, err := Target("mainnet", "localhost:32001"); err != nil || got != "localhost:32001" {
		t.Fatalf("explicit endpoint = %q, %v", got, err)
	}
	if _, err := Target("mainnet", ""); !errors.Is(err, ErrMainnetUnavailable) {
		t.Fatalf("mainnet err = %v", err)
	}
	if _, err := Target("ropsten", ""); err == nil {
		t.Fatalf("expected unknown network error")
	}
}
