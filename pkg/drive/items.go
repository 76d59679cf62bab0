package drive

import (
	"context"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// pathCall validates path and sends op with it as the only parameter.
func (c *Client) pathCall(ctx context.Context, name string, path CloudPath, opts []CallOption) (*http.Response, error) {
	op := mustOperation(name)
	if err := check(op, "path", path, pathRequired); err != nil {
		return nil, err
	}

	req := newCall(op, opts, func(r *Request) {
		r.SetQuery("path", path.String())
	})

	return c.send(ctx, op, req)
}

// sourceTargetCall validates and sends a copy or move.
func (c *Client) sourceTargetCall(ctx context.Context, name string, source, target CloudPath, opts []CallOption) (*http.Response, error) {
	op := mustOperation(name)
	if err := checkAll(
		check(op, "source", source, pathRequired),
		check(op, "target", target, pathRequired),
	); err != nil {
		return nil, err
	}

	req := newCall(op, opts, func(r *Request) {
		r.SetQuery("source", source.String())
		r.SetQuery("target", target.String())
	})

	return c.send(ctx, op, req)
}

// GetItemInfoResponse requests the item at path.
func (c *Client) GetItemInfoResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpGetItemInfo, path, opts)
}

// GetItemInfoResult describes the item at path.
func (c *Client) GetItemInfoResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[ItemInfo], error) {
	resp, err := c.GetItemInfoResponse(ctx, path, opts...)
	if err != nil {
		return Result[ItemInfo]{}, err
	}

	return decodeValue[ItemInfo](mustOperation(OpGetItemInfo), resp)
}

// GetItemInfo describes the item at path.
func (c *Client) GetItemInfo(ctx context.Context, path CloudPath, opts ...CallOption) (ItemInfo, error) {
	return Unwrap(c.GetItemInfoResult(ctx, path, opts...))
}

// ListChildrenResponse requests the children of the directory at path.
func (c *Client) ListChildrenResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpListChildren, path, opts)
}

// ListChildrenResult lists the directory at path. An empty success body
// yields a nil slice.
func (c *Client) ListChildrenResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[[]ItemInfo], error) {
	resp, err := c.ListChildrenResponse(ctx, path, opts...)
	if err != nil {
		return Result[[]ItemInfo]{}, err
	}

	return decodeValue[[]ItemInfo](mustOperation(OpListChildren), resp)
}

// ListChildren lists the directory at path.
func (c *Client) ListChildren(ctx context.Context, path CloudPath, opts ...CallOption) ([]ItemInfo, error) {
	return Unwrap(c.ListChildrenResult(ctx, path, opts...))
}

// ListFileStreamsResponse requests the stream names of the file at path.
func (c *Client) ListFileStreamsResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpListFileStreams, path, opts)
}

// ListFileStreamsResult lists the named streams of the file at path.
func (c *Client) ListFileStreamsResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[[]string], error) {
	resp, err := c.ListFileStreamsResponse(ctx, path, opts...)
	if err != nil {
		return Result[[]string]{}, err
	}

	return decodeValue[[]string](mustOperation(OpListFileStreams), resp)
}

// ListFileStreams lists the named streams of the file at path.
func (c *Client) ListFileStreams(ctx context.Context, path CloudPath, opts ...CallOption) ([]string, error) {
	return Unwrap(c.ListFileStreamsResult(ctx, path, opts...))
}

// ExistsResponse requests whether an item exists at path.
func (c *Client) ExistsResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpExists, path, opts)
}

// ExistsResult reports whether an item exists at path.
func (c *Client) ExistsResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[ExistsResponse], error) {
	resp, err := c.ExistsResponse(ctx, path, opts...)
	if err != nil {
		return Result[ExistsResponse]{}, err
	}

	return decodeValue[ExistsResponse](mustOperation(OpExists), resp)
}

// Exists reports whether an item exists at path.
func (c *Client) Exists(ctx context.Context, path CloudPath, opts ...CallOption) (bool, error) {
	r, err := Unwrap(c.ExistsResult(ctx, path, opts...))
	return r.Exists, err
}

// CreateOptions controls CreateDriveItem. A nil Overwrite omits the
// parameter; a nil File creates a directory.
type CreateOptions struct {
	Overwrite *bool
	File      *FileParameter
}

// CreateDriveItemResponse creates a file or directory at path.
func (c *Client) CreateDriveItemResponse(ctx context.Context, path CloudPath, create CreateOptions, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpCreateDriveItem)
	if err := check(op, "path", path, pathRequired); err != nil {
		return nil, err
	}

	req := newCall(op, opts, func(r *Request) {
		r.SetQuery("path", path.String())
		if create.Overwrite != nil {
			r.SetQuery("overwrite", strconv.FormatBool(*create.Overwrite))
		}

		if create.File != nil {
			r.setMultipart(newFileBody("data", *create.File))
		}
	})

	return c.send(ctx, op, req)
}

// CreateDriveItemResult creates a file or directory at path.
func (c *Client) CreateDriveItemResult(ctx context.Context, path CloudPath, create CreateOptions, opts ...CallOption) (Result[ItemInfo], error) {
	resp, err := c.CreateDriveItemResponse(ctx, path, create, opts...)
	if err != nil {
		return Result[ItemInfo]{}, err
	}

	return decodeValue[ItemInfo](mustOperation(OpCreateDriveItem), resp)
}

// CreateDriveItem creates a file or directory at path.
func (c *Client) CreateDriveItem(ctx context.Context, path CloudPath, create CreateOptions, opts ...CallOption) (ItemInfo, error) {
	return Unwrap(c.CreateDriveItemResult(ctx, path, create, opts...))
}

// DeleteItemResponse deletes the item at path.
func (c *Client) DeleteItemResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.pathCall(ctx, OpDeleteItem, path, opts)
}

// DeleteItemResult deletes the item at path.
func (c *Client) DeleteItemResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[Unit], error) {
	resp, err := c.DeleteItemResponse(ctx, path, opts...)
	if err != nil {
		return Result[Unit]{}, err
	}

	return decodeUnit(mustOperation(OpDeleteItem), resp)
}

// DeleteItem deletes the item at path.
func (c *Client) DeleteItem(ctx context.Context, path CloudPath, opts ...CallOption) error {
	return Check(c.DeleteItemResult(ctx, path, opts...))
}

// CopyResponse copies source to target.
func (c *Client) CopyResponse(ctx context.Context, source, target CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.sourceTargetCall(ctx, OpCopy, source, target, opts)
}

// CopyResult copies source to target.
func (c *Client) CopyResult(ctx context.Context, source, target CloudPath, opts ...CallOption) (Result[Unit], error) {
	resp, err := c.CopyResponse(ctx, source, target, opts...)
	if err != nil {
		return Result[Unit]{}, err
	}

	return decodeUnit(mustOperation(OpCopy), resp)
}

// Copy copies source to target.
func (c *Client) Copy(ctx context.Context, source, target CloudPath, opts ...CallOption) error {
	return Check(c.CopyResult(ctx, source, target, opts...))
}

// MoveResponse moves source to target.
func (c *Client) MoveResponse(ctx context.Context, source, target CloudPath, opts ...CallOption) (*http.Response, error) {
	return c.sourceTargetCall(ctx, OpMove, source, target, opts)
}

// MoveResult moves source to target.
func (c *Client) MoveResult(ctx context.Context, source, target CloudPath, opts ...CallOption) (Result[Unit], error) {
	resp, err := c.MoveResponse(ctx, source, target, opts...)
	if err != nil {
		return Result[Unit]{}, err
	}

	return decodeUnit(mustOperation(OpMove), resp)
}

// Move moves source to target.
func (c *Client) Move(ctx context.Context, source, target CloudPath, opts ...CallOption) error {
	return Check(c.MoveResult(ctx, source, target, opts...))
}

type importBody struct {
	Files []ImportRecord `json:"files"`
}

// ImportFilesResponse registers externally stored files. An empty path
// omits the parameter and lets the service choose the destination.
func (c *Client) ImportFilesResponse(ctx context.Context, files []ImportRecord, path CloudPath, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpImportFiles)
	if err := check(op, "files", files, validation.NotNil); err != nil {
		return nil, err
	}

	if path != "" {
		if err := check(op, "path", path); err != nil {
			return nil, err
		}
	}

	var encErr error

	req := newCall(op, opts, func(r *Request) {
		if path != "" {
			r.SetQuery("path", path.String())
		}

		encErr = r.setJSON(importBody{Files: files})
	})
	if encErr != nil {
		return nil, &ValidationError{Operation: op.name, Param: "files", Err: encErr}
	}

	return c.send(ctx, op, req)
}

// ImportFilesResult registers externally stored files and returns the
// created file items.
func (c *Client) ImportFilesResult(ctx context.Context, files []ImportRecord, path CloudPath, opts ...CallOption) (Result[[]ItemInfo], error) {
	resp, err := c.ImportFilesResponse(ctx, files, path, opts...)
	if err != nil {
		return Result[[]ItemInfo]{}, err
	}

	return decodeValue[[]ItemInfo](mustOperation(OpImportFiles), resp)
}

// ImportFiles registers externally stored files.
func (c *Client) ImportFiles(ctx context.Context, files []ImportRecord, path CloudPath, opts ...CallOption) ([]ItemInfo, error) {
	return Unwrap(c.ImportFilesResult(ctx, files, path, opts...))
}
