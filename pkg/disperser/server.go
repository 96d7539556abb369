package disperser

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jacktea/eigenkv/pkg/blob"
)

// Server exposes a blob.Transport as a disperser service, which lets a
// LocalTransport stand in for the real network.
type Server struct {
	unimplementedDisperserServer
	Transport blob.Transport
	Logger    *slog.Logger
}

// Register installs s on a gRPC server created with ServerOptions.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

// ServerOptions returns the options a grpc.Server needs to decode the
// hand-encoded disperser messages.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.ForceServerCodec(wireCodec{})}
}

func (s *Server) DisperseBlob(ctx context.Context, in *disperseBlobRequest) (*disperseBlobReply, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing transport")
	}
	if len(in.Data) == 0 {
		return nil, status.Error(codes.InvalidArgument, "blob data is empty")
	}
	reply, err := s.Transport.Disperse(ctx, in.Data)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger().Debug("dispersal accepted", "account", in.AccountID, "bytes", len(in.Data), "request_id", string(reply.RequestID))
	return &disperseBlobReply{Result: reply.Status, RequestID: reply.RequestID}, nil
}

// GetBlobStatus attaches a verification proof only once the transport
// reports an index; a batch tag without an index cannot be expressed.
func (s *Server) GetBlobStatus(ctx context.Context, in *blobStatusRequest) (*blobStatusReply, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing transport")
	}
	st, err := s.Transport.PollStatus(ctx, in.RequestID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &blobStatusReply{Status: st.Status}
	if st.Index != nil {
		proof := &verificationProof{BlobIndex: *st.Index}
		if len(st.BatchTag) > 0 {
			proof.Metadata = &batchMetadata{BatchHeaderHash: st.BatchTag}
		}
		out.Info = &blobInfo{Proof: proof}
	}
	return out, nil
}

func (s *Server) RetrieveBlob(ctx context.Context, in *retrieveBlobRequest) (*retrieveBlobReply, error) {
	if s == nil || s.Transport == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing transport")
	}
	data, err := s.Transport.Retrieve(ctx, in.BlobIndex, in.BatchHeaderHash)
	if err != nil {
		return nil, toStatus(err)
	}
	return &retrieveBlobReply{Data: data}, nil
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
