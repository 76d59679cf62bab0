package drive

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateDriveResponse registers a new drive.
func (c *Client) CreateDriveResponse(ctx context.Context, request *CreateDriveRequest, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpCreateDrive)
	if err := check(op, "request", request, validation.NotNil); err != nil {
		return nil, err
	}

	var encErr error

	req := newCall(op, opts, func(r *Request) {
		encErr = r.setJSON(request)
	})
	if encErr != nil {
		return nil, &ValidationError{Operation: op.name, Param: "request", Err: encErr}
	}

	return c.send(ctx, op, req)
}

// CreateDriveResult registers a new drive.
func (c *Client) CreateDriveResult(ctx context.Context, request *CreateDriveRequest, opts ...CallOption) (Result[Drive], error) {
	resp, err := c.CreateDriveResponse(ctx, request, opts...)
	if err != nil {
		return Result[Drive]{}, err
	}

	return decodeValue[Drive](mustOperation(OpCreateDrive), resp)
}

// CreateDrive registers a new drive.
func (c *Client) CreateDrive(ctx context.Context, request *CreateDriveRequest, opts ...CallOption) (Drive, error) {
	return Unwrap(c.CreateDriveResult(ctx, request, opts...))
}

// ListDrivesResponse requests the drives visible to the caller.
func (c *Client) ListDrivesResponse(ctx context.Context, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpListDrives)
	return c.send(ctx, op, newCall(op, opts, nil))
}

// ListDrivesResult lists the drives visible to the caller.
func (c *Client) ListDrivesResult(ctx context.Context, opts ...CallOption) (Result[[]Drive], error) {
	resp, err := c.ListDrivesResponse(ctx, opts...)
	if err != nil {
		return Result[[]Drive]{}, err
	}

	return decodeValue[[]Drive](mustOperation(OpListDrives), resp)
}

// ListDrives lists the drives visible to the caller.
func (c *Client) ListDrives(ctx context.Context, opts ...CallOption) ([]Drive, error) {
	return Unwrap(c.ListDrivesResult(ctx, opts...))
}

// ListPartitionsResponse requests the partitions visible to the caller.
func (c *Client) ListPartitionsResponse(ctx context.Context, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpListPartitions)
	return c.send(ctx, op, newCall(op, opts, nil))
}

// ListPartitionsResult lists the partitions visible to the caller.
func (c *Client) ListPartitionsResult(ctx context.Context, opts ...CallOption) (Result[[]Partition], error) {
	resp, err := c.ListPartitionsResponse(ctx, opts...)
	if err != nil {
		return Result[[]Partition]{}, err
	}

	return decodeValue[[]Partition](mustOperation(OpListPartitions), resp)
}

// ListPartitions lists the partitions visible to the caller.
func (c *Client) ListPartitions(ctx context.Context, opts ...CallOption) ([]Partition, error) {
	return Unwrap(c.ListPartitionsResult(ctx, opts...))
}
