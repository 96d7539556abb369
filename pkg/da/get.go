package da

import (
	"context"

	"github.com/jacktea/eigenkv/pkg/blob"
	"github.com/jacktea/eigenkv/pkg/chunk"
	"github.com/jacktea/eigenkv/pkg/xerrors"
)

// Get retrieves the blob referenced by id and deserializes it into v.
// A KindDeserialization error usually means id does not reference data
// written by Put.
func (c *Client) Get(ctx context.Context, id blob.ID, v any) error {
	raw, err := c.GetBytes(ctx, id)
	if err != nil {
		return err
	}
	if err := c.serializer.Unmarshal(raw, v); err != nil {
		return xerrors.Wrap(xerrors.KindDeserialization, "Client.Get", id.String(), err)
	}
	return nil
}

// GetBytes retrieves and decodes the blob referenced by id without
// deserializing it.
func (c *Client) GetBytes(ctx context.Context, id blob.ID) ([]byte, error) {
	ref := id.String()
	if raw, ok := c.cache.Get(ref); ok {
		return append([]byte(nil), raw...), nil
	}
	encoded, err := c.transport.Retrieve(ctx, id.Index, id.BatchTag)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindRetrieval, "Client.Get", ref, transportErr("Client.Retrieve", ref, err))
	}
	raw, err := chunk.Decode(encoded)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindRetrieval, "Client.Get", ref, err)
	}
	c.cache.Set(ref, append([]byte(nil), raw...))
	c.log.Debug("blob retrieved", "blob_id", ref, "bytes", len(encoded))
	return raw, nil
}

// GetValue is Get with the destination type as a type parameter.
func GetValue[T any](ctx context.Context, c *Client, id blob.ID) (T, error) {
	var v T
	err := c.Get(ctx, id, &v)
	return v, err
}

// StatusOf returns the network status recorded on a failed Put.
func StatusOf(err error) (blob.Status, bool) {
	code, ok := xerrors.CodeOf(err)
	if !ok {
		return blob.StatusUnknown, false
	}
	return blob.Status(code), true
}
