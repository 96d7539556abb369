package da

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/chunk"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// Put serializes v and stores it, returning the identifier of the confirmed
// blob.
//
// With opts.MaxTimeout set, Put returns a KindTimeout error once the deadline
// passes. Polling itself is not interrupted by that deadline and its late
// result is dropped; cancel ctx to stop it.
func (c *Client) Put(ctx context.Context, v any, opts *PutOptions) (blob.ID, error) {
	raw, err := c.serializer.Marshal(v)
	if err != nil {
		return blob.ID{}, xerrors.Wrap(xerrors.KindInvalid, "Client.Put", c.serializer.Name(), err)
	}
	return c.PutBytes(ctx, raw, opts)
}

// PutBytes stores already-serialized payload bytes.
func (c *Client) PutBytes(ctx context.Context, raw []byte, opts *PutOptions) (blob.ID, error) {
	type outcome struct {
		id  blob.ID
		err error
	}
	var timeout <-chan time.Time
	if opts != nil && opts.MaxTimeout > 0 {
		timer := time.NewTimer(opts.MaxTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	// Single slot: the submission goroutine never blocks on an abandoned result.
	result := make(chan outcome, 1)
	go func() {
		id, err := c.submit(ctx, raw)
		result <- outcome{id: id, err: err}
	}()

	select {
	case out := <-result:
		return out.id, out.err
	case <-timeout:
		c.log.Warn("submission timed out", "timeout", opts.MaxTimeout)
		return blob.ID{}, xerrors.Wrap(xerrors.KindTimeout, "Client.Put", "",
			fmt.Errorf("no confirmation within %s", opts.MaxTimeout))
	case <-ctx.Done():
		return blob.ID{}, transportErr("Client.Put", "", ctx.Err())
	}
}

// submission is the state of one Put while it polls.
type submission struct {
	requestID []byte
	status    blob.Status
	index     *uint32
	batchTag  []byte
	polls     int
}

func (c *Client) submit(ctx context.Context, raw []byte) (blob.ID, error) {
	encoded := chunk.Encode(raw)
	if !c.guard.Fits(encoded) {
		return blob.ID{}, xerrors.Wrap(xerrors.KindPayloadTooLarge, "Client.Put", "",
			fmt.Errorf("encoded blob is %d bytes, limit is %d", len(encoded), c.guard.Limit()))
	}
	reply, err := c.transport.Disperse(ctx, encoded)
	if err != nil {
		return blob.ID{}, transportErr("Client.Put", "", err)
	}
	state := &submission{requestID: reply.RequestID, status: reply.Status}
	ref := requestRef(reply.RequestID)
	c.log.Debug("blob dispersed", "request_id", ref, "status", reply.Status, "bytes", len(encoded))

	start := time.Now()
	if err := c.poll(ctx, state); err != nil {
		return blob.ID{}, err
	}
	id, err := resolve(state)
	if err != nil {
		c.log.Warn("submission failed", "request_id", ref, "status", state.status, "polls", state.polls, "err", err)
		return blob.ID{}, err
	}
	c.log.Info("blob confirmed", "request_id", ref, "blob_id", id.String(), "polls", state.polls, "elapsed", time.Since(start))
	return id, nil
}

// poll queries the transport until the status is terminal or the blob has
// been given an index, whichever is seen first. A pending status with a fresh
// index still ends the loop.
func (c *Client) poll(ctx context.Context, state *submission) error {
	ref := requestRef(state.requestID)
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return transportErr("Client.Put", ref, ctx.Err())
		case <-timer.C:
		}
		reply, err := c.transport.PollStatus(ctx, state.requestID)
		if err != nil {
			return transportErr("Client.Put", ref, err)
		}
		state.polls++
		state.status = reply.Status
		if reply.Index != nil {
			index := *reply.Index
			state.index = &index
		}
		if len(reply.BatchTag) > 0 {
			state.batchTag = append([]byte(nil), reply.BatchTag...)
		}
		c.log.Debug("blob status", "request_id", ref, "status", state.status, "poll", state.polls, "placed", state.index != nil)
		if state.status.Terminal() || state.index != nil {
			return nil
		}
		timer.Reset(c.pollInterval)
	}
}

func resolve(state *submission) (blob.ID, error) {
	ref := requestRef(state.requestID)
	if state.index == nil || len(state.batchTag) == 0 {
		return blob.ID{}, xerrors.WithCode(xerrors.KindIncompleteConfirmation, "Client.Put", ref, int(state.status))
	}
	if state.status != blob.StatusConfirmed {
		return blob.ID{}, xerrors.WithCode(xerrors.KindUnconfirmed, "Client.Put", ref, int(state.status))
	}
	return blob.ID{Index: *state.index, BatchTag: state.batchTag}, nil
}

// requestRef renders a request id for logs and errors.
func requestRef(id []byte) string {
	if utf8.Valid(id) {
		printable := true
		for _, r := range string(id) {
			if !unicode.IsPrint(r) {
				printable = false
				break
			}
		}
		if printable {
			return string(id)
		}
	}
	return hex.EncodeToString(id)
}
