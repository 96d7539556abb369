// Package disperser talks to an EigenDA disperser over gRPC and adapts it to
// blob.Transport.
package disperser

import (
	"context"
	"crypto/tls"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// DefaultAccountID is sent with every dispersal when none is configured.
const DefaultAccountID = "eigenkv"

// Config describes how to reach a disperser.
type Config struct {
	Target string
	// Insecure disables TLS, for local disperser instances.
	Insecure  bool
	AccountID string
	// CustomQuorums requests quorums on top of the network defaults.
	CustomQuorums []uint32
	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
	// DialOptions are appended after the options derived from the fields above.
	DialOptions []grpc.DialOption
}

// Client implements blob.Transport over the disperser gRPC service.
type Client struct {
	cc        *grpc.ClientConn
	rpc       *disperserClient
	accountID string
	quorums   []uint32
	timeout   time.Duration
}

var _ blob.Transport = (*Client)(nil)

// Dial creates a client for cfg.Target. The connection is established lazily
// on the first RPC.
func Dial(cfg Config) (*Client, error) {
	if cfg.Target == "" {
		return nil, xerrors.E(xerrors.KindInvalid, "disperser.Dial", "target")
	}
	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	callOpts := []grpc.CallOption{grpc.ForceCodec(wireCodec{})}
	if cfg.MaxMsgBytes > 0 {
		callOpts = append(callOpts,
			grpc.MaxCallRecvMsgSize(cfg.MaxMsgBytes),
			grpc.MaxCallSendMsgSize(cfg.MaxMsgBytes),
		)
	}
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(callOpts...),
	}
	dialOpts = append(dialOpts, cfg.DialOptions...)

	cc, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindTransport, "disperser.Dial", cfg.Target, err)
	}
	accountID := cfg.AccountID
	if accountID == "" {
		accountID = DefaultAccountID
	}
	return &Client{
		cc:        cc,
		rpc:       &disperserClient{cc: cc},
		accountID: accountID,
		quorums:   append([]uint32(nil), cfg.CustomQuorums...),
		timeout:   cfg.Timeout,
	}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Disperse submits encoded blob data.
func (c *Client) Disperse(ctx context.Context, data []byte) (blob.DisperseReply, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()
	reply, err := c.rpc.DisperseBlob(ctx, &disperseBlobRequest{
		Data:                data,
		CustomQuorumNumbers: c.quorums,
		AccountID:           c.accountID,
	})
	if err != nil {
		return blob.DisperseReply{}, mapRPC("Client.Disperse", "", err)
	}
	if len(reply.RequestID) == 0 {
		return blob.DisperseReply{}, xerrors.Wrap(xerrors.KindTransport, "Client.Disperse", "", errEmptyRequestID)
	}
	return blob.DisperseReply{RequestID: reply.RequestID, Status: reply.Result}, nil
}

// PollStatus reports the state of a dispersal. The blob counts as placed once
// the reply carries a verification proof; the batch tag is the batch header
// hash from the proof's metadata.
func (c *Client) PollStatus(ctx context.Context, requestID []byte) (blob.StatusReply, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()
	reply, err := c.rpc.GetBlobStatus(ctx, &blobStatusRequest{RequestID: requestID})
	if err != nil {
		return blob.StatusReply{}, mapRPC("Client.PollStatus", string(requestID), err)
	}
	out := blob.StatusReply{Status: reply.Status}
	if reply.Info != nil && reply.Info.Proof != nil {
		proof := reply.Info.Proof
		index := proof.BlobIndex
		out.Index = &index
		if proof.Metadata != nil {
			out.BatchTag = proof.Metadata.BatchHeaderHash
		}
	}
	return out, nil
}

// Retrieve fetches the encoded blob at index within the batch.
func (c *Client) Retrieve(ctx context.Context, index uint32, batchTag []byte) ([]byte, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()
	reply, err := c.rpc.RetrieveBlob(ctx, &retrieveBlobRequest{BatchHeaderHash: batchTag, BlobIndex: index})
	if err != nil {
		return nil, mapRPC("Client.Retrieve", blob.ID{Index: index, BatchTag: batchTag}.String(), err)
	}
	return reply.Data, nil
}

func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
