package drive

import (
	"context"
	"io"
	"mime"
	"net/http"
	"sync"
)

// FileResponse is an open download. It must be closed.
type FileResponse struct {
	StatusCode    int
	Header        http.Header
	ContentType   string
	ContentLength int64
	// FileName comes from Content-Disposition when the service sends one.
	FileName string

	body      io.ReadCloser
	closeOnce sync.Once
	closeErr  error
}

func newFileResponse(resp *http.Response) *FileResponse {
	f := &FileResponse{
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		body:          resp.Body,
	}

	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			f.FileName = params["filename"]
		}
	}

	return f
}

// Read reads from the response body.
func (f *FileResponse) Read(p []byte) (int, error) {
	return f.body.Read(p)
}

// Close releases the underlying connection. It is safe to call twice.
func (f *FileResponse) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.body.Close()
	})

	return f.closeErr
}

// DownloadContentResponse requests the content of the file at path.
func (c *Client) DownloadContentResponse(ctx context.Context, path CloudPath, opts ...CallOption) (*http.Response, error) {
	op := mustOperation(OpDownloadContent)
	if err := check(op, "path", path, pathRequired); err != nil {
		return nil, err
	}

	req := newCall(op, opts, func(r *Request) {
		r.SetQuery("path", path.String())
	})

	return c.send(ctx, op, req)
}

// DownloadContentResult downloads the file at path. A 204 yields a nil
// *FileResponse rather than an empty stream.
func (c *Client) DownloadContentResult(ctx context.Context, path CloudPath, opts ...CallOption) (Result[*FileResponse], error) {
	resp, err := c.DownloadContentResponse(ctx, path, opts...)
	if err != nil {
		return Result[*FileResponse]{}, err
	}

	return decodeStream(mustOperation(OpDownloadContent), resp)
}

// DownloadContent downloads the file at path. The caller must close the
// returned FileResponse when it is non-nil.
func (c *Client) DownloadContent(ctx context.Context, path CloudPath, opts ...CallOption) (*FileResponse, error) {
	return Unwrap(c.DownloadContentResult(ctx, path, opts...))
}
