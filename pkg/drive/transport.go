package drive

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds the wait for response headers. Bodies are not
// covered so large downloads can stream.
const DefaultRequestTimeout = 100 * time.Second

const dialTimeout = 30 * time.Second

// NewHTTPClient returns a client with a response-header timeout and a
// minimum TLS version. A zero minTLS selects TLS 1.2.
func NewHTTPClient(timeout time.Duration, minTLS uint16) *http.Client {
	if minTLS == 0 {
		minTLS = tls.VersionTLS12
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: dialTimeout,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: timeout,
		TLSClientConfig:       &tls.Config{MinVersion: minTLS},
	}

	return &http.Client{Transport: transport}
}

// ParseTLSVersion maps "1.2" and "1.3" to crypto/tls constants.
func ParseTLSVersion(s string) (uint16, error) {
	switch s {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("drive: unsupported TLS version %q (want 1.2 or 1.3)", s)
	}
}
