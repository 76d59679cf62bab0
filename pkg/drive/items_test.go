package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listChildrenBody = `[
	{"type":"file","id":"0b5d2a3c-1111-4a5b-8c9d-000000000001","fullPath":"c:/a.txt","name":"a.txt",
	 "parentDirectoryId":"0b5d2a3c-1111-4a5b-8c9d-0000000000ff","length":12,"contentType":"text/plain"},
	{"type":"directory","id":"0b5d2a3c-1111-4a5b-8c9d-000000000002","fullPath":"c:/docs","name":"docs",
	 "parentDirectoryId":"0b5d2a3c-1111-4a5b-8c9d-0000000000ff","hasChildren":true}
]`

func TestListChildren_Scenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cmd/dir", r.URL.Path)
		assert.Equal(t, "c:/", r.URL.Query().Get("path"))
		jsonResponse(w, http.StatusOK, listChildrenBody)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	res, err := client.ListChildrenResult(context.Background(), "c:/")
	require.NoError(t, err)
	require.True(t, res.IsSuccess())

	items := res.Value()
	require.Len(t, items, 2)

	assert.Equal(t, ItemTypeFile, items[0].Type)
	assert.Equal(t, "c:/a.txt", items[0].FullPath)
	require.NotNil(t, items[0].File)
	assert.Equal(t, int64(12), items[0].File.Length)
	assert.Nil(t, items[0].Directory)

	assert.True(t, items[1].IsDir())
	require.NotNil(t, items[1].Directory)
	assert.True(t, items[1].Directory.HasChildren)
}

func TestListChildren_EmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	items, err := client.ListChildren(context.Background(), "c:/empty")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteItem_ProblemScenario(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cmd/delete", r.URL.Path)
		assert.Equal(t, "c:/missing", r.URL.Query().Get("path"))
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"title":"Not Found","status":400}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	res, err := client.DeleteItemResult(context.Background(), "c:/missing")
	require.NoError(t, err)
	require.False(t, res.IsSuccess())

	p, ok := res.Err().(*ProblemDetails)
	require.True(t, ok)
	assert.Equal(t, "Not Found", p.Title)
	assert.Equal(t, 400, p.Status)

	err = client.DeleteItem(context.Background(), "c:/missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.IsType(t, &ProblemDetails{}, apiErr.Err)
}

func TestCreateDriveItem_RetriesTransportFailures(t *testing.T) {
	var attempts atomic.Int32

	var bodies []string

	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		n := attempts.Add(1)

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(data))

		if n <= 2 {
			return nil, errors.New("connection reset by peer")
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body: io.NopCloser(strings.NewReader(
				`{"type":"file","id":"0b5d2a3c-1111-4a5b-8c9d-000000000003","fullPath":"c:/new.txt","name":"new.txt","length":5}`)),
			Request: r,
		}, nil
	})}

	client := newTestClient(t, "https://drive.example.com",
		WithHTTPClient(hc),
		WithPolicy(OpCreateDriveItem, retryNoSleep(3)),
	)

	file := &FileParameter{Data: strings.NewReader("hello"), FileName: "new.txt", ContentType: "text/plain"}

	res, err := client.CreateDriveItemResult(context.Background(), "c:/new.txt", CreateOptions{File: file})
	require.NoError(t, err)
	require.True(t, res.IsSuccess())
	assert.Equal(t, "new.txt", res.Value().Name)
	assert.Equal(t, int32(3), attempts.Load())

	require.Len(t, bodies, 3)
	for _, b := range bodies {
		assert.Contains(t, b, "hello", "body replayed on every attempt")
	}
}

func TestCreateDriveItem_NonSeekableBodyNotReplayed(t *testing.T) {
	var attempts atomic.Int32

	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		attempts.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)

		return nil, errors.New("connection reset")
	})}

	client := newTestClient(t, "https://drive.example.com",
		WithHTTPClient(hc),
		WithPolicy(OpCreateDriveItem, retryNoSleep(3)),
	)

	file := &FileParameter{Data: io.LimitReader(strings.NewReader("data"), 4), FileName: "x"}

	_, err := client.CreateDriveItem(context.Background(), "c:/x", CreateOptions{File: file})
	require.ErrorIs(t, err, ErrBodyNotReplayable)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestCreateDriveItem_MultipartAndOverwrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cmd/create", r.URL.Path)
		assert.Equal(t, "path=c%3A%2Fdocs%2Fr.md&overwrite=true&api-version=2019-09-01", r.URL.RawQuery)

		f, hdr, err := r.FormFile("data")
		require.NoError(t, err)
		defer f.Close()

		data, _ := io.ReadAll(f)
		assert.Equal(t, "# readme", string(data))
		assert.Equal(t, "r.md", hdr.Filename)
		assert.Equal(t, "text/markdown", hdr.Header.Get("Content-Type"))

		jsonResponse(w, http.StatusOK, `{"type":"file","name":"r.md"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	overwrite := true

	item, err := client.CreateDriveItem(context.Background(), "c:/docs/r.md", CreateOptions{
		Overwrite: &overwrite,
		File:      &FileParameter{Data: strings.NewReader("# readme"), FileName: "r.md", ContentType: "text/markdown"},
	})
	require.NoError(t, err)
	assert.Equal(t, "r.md", item.Name)
}

func TestCreateDriveItem_DirectoryOmitsOptionalParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["overwrite"]
		assert.False(t, ok)
		assert.Empty(t, r.Header.Get("Content-Type"))
		jsonResponse(w, http.StatusOK, `{"type":"directory","name":"d"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	item, err := client.CreateDriveItem(context.Background(), "c:/d", CreateOptions{})
	require.NoError(t, err)
	assert.True(t, item.IsDir())
}

func TestPathOperations_RequestShape(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
		call   func(c *Client) error
	}{
		{"GetItemInfo", http.MethodGet, "/cmd/info", 200, `{"type":"file"}`, func(c *Client) error {
			_, err := c.GetItemInfo(context.Background(), "c:/a")
			return err
		}},
		{"ListFileStreams", http.MethodGet, "/cmd/streams", 200, `["$DATA","thumb"]`, func(c *Client) error {
			s, err := c.ListFileStreams(context.Background(), "c:/a")
			if err == nil && len(s) != 2 {
				return errors.New("want two streams")
			}

			return err
		}},
		{"Exists", http.MethodGet, "/cmd/exists", 200, `{"exists":false}`, func(c *Client) error {
			_, err := c.Exists(context.Background(), "c:/a")
			return err
		}},
		{"DeleteItem", http.MethodPost, "/cmd/delete", 204, "", func(c *Client) error {
			return c.DeleteItem(context.Background(), "c:/a")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.method, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "c:/a", r.URL.Query().Get("path"))
				jsonResponse(w, tt.status, tt.body)
			}))
			defer srv.Close()

			require.NoError(t, tt.call(newTestClient(t, srv.URL)))
		})
	}
}

func TestGetItemInfo_NoContentYieldsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	item, err := newTestClient(t, srv.URL).GetItemInfo(context.Background(), "c:/a")
	require.NoError(t, err)
	assert.Equal(t, ItemInfo{}, item)
}

func TestCopyAndMove(t *testing.T) {
	for _, tc := range []struct {
		path string
		call func(c *Client) error
	}{
		{"/cmd/copy", func(c *Client) error { return c.Copy(context.Background(), "c:/a", "d:/b") }},
		{"/cmd/move", func(c *Client) error { return c.Move(context.Background(), "c:/a", "d:/b") }},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, tc.path, r.URL.Path)
			assert.Equal(t, "source=c%3A%2Fa&target=d%3A%2Fb&api-version=2019-09-01", r.URL.RawQuery)
			w.WriteHeader(http.StatusOK)
		}))

		require.NoError(t, tc.call(newTestClient(t, srv.URL)))
		srv.Close()
	}
}

func TestPathValidation_NoIO(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	errs := []error{
		client.DeleteItem(ctx, ""),
		client.Copy(ctx, "c:/a", ""),
		client.Move(ctx, "no-colon", "c:/b"),
		func() error { _, err := client.GetItemInfo(ctx, ""); return err }(),
		func() error { _, err := client.ListChildren(ctx, "relative/path"); return err }(),
		func() error { _, err := client.DownloadContent(ctx, ""); return err }(),
		func() error { _, err := client.CreateDriveItem(ctx, "", CreateOptions{}); return err }(),
	}

	for i, err := range errs {
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "case %d", i)
		assert.ErrorIs(t, err, ErrValidation)
	}

	assert.Equal(t, int32(0), calls.Load())
}

func TestImportFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cmd/import", r.URL.Path)
		assert.Equal(t, "c:/imports", r.URL.Query().Get("path"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Files []ImportRecord `json:"files"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Files, 1)
		assert.Equal(t, "blob-1", body.Files[0].AlternateID)

		jsonResponse(w, http.StatusOK, `[{"type":"file","name":"a.bin","alternateId":"blob-1","length":3}]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	items, err := client.ImportFiles(context.Background(),
		[]ImportRecord{{Name: "a.bin", AlternateID: "blob-1", Length: 3}}, "c:/imports")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].File)
	assert.Equal(t, "blob-1", items[0].File.AlternateID)
}

func TestImportFiles_OmitsPathAndValidates(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, ok := r.URL.Query()["path"]
		assert.False(t, ok)
		jsonResponse(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.ImportFiles(ctx, []ImportRecord{}, "")
	require.NoError(t, err)

	_, err = client.ImportFiles(ctx, nil, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = client.ImportFiles(ctx, []ImportRecord{{Name: "x"}}, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = client.ImportFiles(ctx, []ImportRecord{}, "bad")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, int32(1), calls.Load())
}

func TestTenantParamFollowsOperationParams(t *testing.T) {
	tenant := uuid.MustParse("6f1c2c0e-2b8f-4c5e-9a0d-3e2f1b4c5d6e")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "path=c%3A%2Fa&tenantId="+tenant.String()+"&api-version=2019-09-01", r.URL.RawQuery)
		jsonResponse(w, http.StatusOK, `{"exists":true}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Exists(context.Background(), "c:/a", WithTenant(tenant))
	require.NoError(t, err)
}

func TestCreateDriveItem_RewindWaitsForAbandonedAttempt(t *testing.T) {
	payload := strings.Repeat("0123456789", 64<<10)

	var attempts atomic.Int32

	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if attempts.Add(1) == 1 {
			// Read a little and abandon the body without closing it.
			_, _ = io.ReadFull(r.Body, make([]byte, 512))
			return nil, errors.New("connection reset")
		}

		mr, err := r.MultipartReader()
		require.NoError(t, err)

		part, err := mr.NextPart()
		require.NoError(t, err)

		got, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got), "second attempt sends the whole file")

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body: io.NopCloser(strings.NewReader(`{"type":"file","id":"0b5d2a3c-1111-4a5b-8c9d-000000000001",` +
				`"fullPath":"c:/big.bin","name":"big.bin","length":655360}`)),
			Request: r,
		}, nil
	})}

	client := newTestClient(t, "https://drive.example.com",
		WithHTTPClient(hc),
		WithPolicy(OpCreateDriveItem, retryNoSleep(2)),
	)

	file := &FileParameter{Data: strings.NewReader(payload), FileName: "big.bin"}

	item, err := client.CreateDriveItem(context.Background(), "c:/big.bin", CreateOptions{File: file})
	require.NoError(t, err)
	assert.Equal(t, int64(655360), item.Size())
	assert.Equal(t, int32(2), attempts.Load())
}
