package drive

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ListFileMetadataResponse requests the metadata of the file at path.
func (c *Client) ListFileMetadataResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpListFileMetadata, path, opts)
}

// ListFileMetadataResult returns the metadata of the file at path.
func (c *Client) ListFileMetadataResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[map[string]string], error) {
	resp, err := c.ListFileMetadataResponse(ctx, path, opts...)
	if err != nil {
		return Result[map[string]string]{}, err
	}

	return decodeValue[map[string]string](mustOperation(OpListFileMetadata), resp)
}

// ListFileMetadata returns the metadata of the file at path.
func (c *Client) ListFileMetadata(ctx context.Context, path CloudPath, opts ...CallOption) (map[string]string, error) {
	return Unwrap(c.ListFileMetadataResult(ctx, path, opts...))
}

// ClearFileMetadataResponse removes all metadata from the file at path.
func (c *Client) ClearFileMetadataResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpClearFileMetadata, path, opts)
}

// ClearFileMetadataResult removes all metadata from the file at path.
func (c *Client) ClearFileMetadataResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[Unit], error) {
	resp, err := c.ClearFileMetadataResponse(ctx, path, opts...)
	if err != nil {
		return Result[Unit]{}, err
	}

	return decodeUnit(mustOperation(OpClearFileMetadata), resp)
}

// ClearFileMetadata removes all metadata from the file at path.
func (c *Client) ClearFileMetadata(ctx context.Context, path CloudPath, opts ...CallOption) error {
	return Check(c.ClearFileMetadataResult(ctx, path, opts...))
}

// RemoveFileMetadataResponse removes one metadata key from the file at path.
// A blank key is rejected before any request is made.
func (c *Client) RemoveFileMetadataResponse(ctx context.Context, path CloudPath, key string, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpRemoveFileMetadata)
	if err := checkAll(
		check(op, "path", path, pathRequired),
		check(op, "key", key, validation.By(notBlank)),
	); err != nil {
		return nil, err
	}

	req := newCall(op, opts, func(r *Request) {
		r.SetQuery("path", path.String())
		r.SetQuery("key", key)
	})

	return c.send(ctx, op, req)
}

// RemoveFileMetadataResult removes one metadata key from the file at path.
func (c *Client) RemoveFileMetadataResult(ctx context.Context, path CloudPath, key string, opts ...CallOption) (Result[Unit], error) {
	resp, err := c.RemoveFileMetadataResponse(ctx, path, key, opts...)
	if err != nil {
		return Result[Unit]{}, err
	}

	return decodeUnit(mustOperation(OpRemoveFileMetadata), resp)
}

// RemoveFileMetadata removes one metadata key from the file at path.
func (c *Client) RemoveFileMetadata(ctx context.Context, path CloudPath, key string, opts ...CallOption) error {
	return Check(c.RemoveFileMetadataResult(ctx, path, key, opts...))
}

// UpsertFileMetadataResponse sets metadata entries on the file at path. Each
// entry is sent as a multipart string field.
func (c *Client) UpsertFileMetadataResponse(ctx context.Context, path CloudPath, metadata map[string]string, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpUpsertFileMetadata)
	if err := checkAll(
		check(op, "path", path, pathRequired),
		check(op, "metadata", metadata, validation.NotNil),
	); err != nil {
		return nil, err
	}

	req := newCall(op, opts, func(r *Request) {
		r.SetQuery("path", path.String())
		r.setMultipart(newFieldsBody(metadata))
	})

	return c.send(ctx, op, req)
}

// UpsertFileMetadataResult sets metadata entries on the file at path.
func (c *Client) UpsertFileMetadataResult(ctx context.Context, path CloudPath, metadata map[string]string, opts ...CallOption) (Result[Unit], error) {
	resp, err := c.UpsertFileMetadataResponse(ctx, path, metadata, opts...)
	if err != nil {
		return Result[Unit]{}, err
	}

	return decodeUnit(mustOperation(OpUpsertFileMetadata), resp)
}

// UpsertFileMetadata sets metadata entries on the file at path.
func (c *Client) UpsertFileMetadata(ctx context.Context, path CloudPath, metadata map[string]string, opts ...CallOption) error {
	return Check(c.UpsertFileMetadataResult(ctx, path, metadata, opts...))
}
