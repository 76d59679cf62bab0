package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

type queryParam struct {
	key   string
	value string
}

// Request describes one call before it is sent: verb, path, ordered query
// parameters, headers and an optional body. Interceptors may adjust it; the
// sender turns it into a fresh *http.Request for every attempt.
type Request struct {
	Method string
	Path   string
	Header http.Header

	query []queryParam
	body  requestBody
}

// requestBody produces a new reader for each attempt.
type requestBody interface {
	open(attempt int) (io.Reader, string, error)
}

func newRequest(op Operation) *Request {
	r := &Request{
		Method: op.method,
		Path:   op.path,
		Header: make(http.Header),
	}
	r.Header.Set("Accept", op.accept)

	return r
}

// SetQuery sets a query parameter. An existing key keeps its position and
// takes the new value.
func (r *Request) SetQuery(key, value string) {
	for i := range r.query {
		if r.query[i].key == key {
			r.query[i].value = value
			return
		}
	}

	r.query = append(r.query, queryParam{key: key, value: value})
}

// Query returns the value of a query parameter.
func (r *Request) Query(key string) (string, bool) {
	for _, p := range r.query {
		if p.key == key {
			return p.value, true
		}
	}

	return "", false
}

// RawQuery encodes the query parameters in insertion order.
func (r *Request) RawQuery() string {
	var b strings.Builder
	for i, p := range r.query {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}

	return b.String()
}

// HasBody reports whether the request carries a body.
func (r *Request) HasBody() bool { return r.body != nil }

func (r *Request) setJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("drive: encoding request body: %w", err)
	}

	r.body = jsonBody(data)

	return nil
}

func (r *Request) setMultipart(b *multipartBody) {
	r.body = b
}

// materialize builds the *http.Request for one attempt.
func (r *Request) materialize(ctx context.Context, base *url.URL, attempt int) (*http.Request, error) {
	u := base.ResolveReference(&url.URL{Path: r.Path})
	u.RawQuery = r.RawQuery()

	var (
		body        io.Reader
		contentType string
	)

	if r.body != nil {
		var err error

		body, contentType, err = r.body.open(attempt)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		if c, ok := body.(io.Closer); ok {
			c.Close()
		}

		return nil, fmt.Errorf("drive: creating request: %w", err)
	}

	req.Header = r.Header.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

// jsonBody is encoded once and replayed from memory.
type jsonBody []byte

func (b jsonBody) open(int) (io.Reader, string, error) {
	return bytes.NewReader(b), "application/json", nil
}

type multipartFile struct {
	field string
	file  FileParameter
}

type multipartField struct {
	name  string
	value string
}

// multipartBody streams form-data through a pipe. File data is rewound
// between attempts and must implement io.Seeker to be replayed. Attempts are
// sequential, so the previous attempt's writer is tracked without locking.
type multipartBody struct {
	files  []multipartFile
	fields []multipartField

	prevReader *io.PipeReader
	prevDone   chan struct{}
}

func newFileBody(field string, f FileParameter) *multipartBody {
	return &multipartBody{files: []multipartFile{{field: field, file: f}}}
}

// newFieldsBody encodes values as string fields in key order.
func newFieldsBody(values map[string]string) *multipartBody {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	b := &multipartBody{fields: make([]multipartField, 0, len(keys))}
	for _, k := range keys {
		b.fields = append(b.fields, multipartField{name: k, value: values[k]})
	}

	return b
}

func (b *multipartBody) open(attempt int) (io.Reader, string, error) {
	b.stopPrevious()

	if attempt > 0 {
		for _, f := range b.files {
			if f.file.Data == nil {
				continue
			}

			seeker, ok := f.file.Data.(io.Seeker)
			if !ok {
				return nil, "", ErrBodyNotReplayable
			}

			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, "", fmt.Errorf("%w: %w", ErrBodyNotReplayable, err)
			}
		}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})

	go func() {
		defer close(done)

		err := b.write(mw)
		if err == nil {
			err = mw.Close()
		}

		pw.CloseWithError(err)
	}()

	b.prevReader, b.prevDone = pr, done

	return pr, mw.FormDataContentType(), nil
}

// stopPrevious unblocks the last attempt's writer and waits for it to exit,
// so the file data is no longer being read when it is rewound.
func (b *multipartBody) stopPrevious() {
	if b.prevReader == nil {
		return
	}

	b.prevReader.CloseWithError(errAttemptFinished)
	<-b.prevDone

	b.prevReader, b.prevDone = nil, nil
}

var errAttemptFinished = errors.New("drive: attempt finished")

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (b *multipartBody) write(mw *multipart.Writer) error {
	for _, f := range b.fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return err
		}
	}

	for _, f := range b.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.field), quoteEscaper.Replace(f.file.FileName)))

		ct := f.file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}

		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return err
		}

		if f.file.Data != nil {
			if _, err := io.Copy(part, f.file.Data); err != nil {
				return err
			}
		}
	}

	return nil
}
