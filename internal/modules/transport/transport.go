package transport

import (
	"fmt"
	"net/http"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// HTTPClient is the seam every outbound call goes through.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewStdClient returns a net/http client. A zero timeout means none.
func NewStdClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// NewTLSClient returns a client that presents a browser TLS fingerprint.
// Some resolver backends sit behind bot protection that rejects Go's default handshake.
// A zero timeout means none, as with NewStdClient.
func NewTLSClient(timeout time.Duration) (HTTPClient, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutMilliseconds(timeoutMillis(timeout)),
		tls_client.WithClientProfile(profiles.DefaultClientProfile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}

	c, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tls client: %w", err)
	}
	return &tlsWrapper{inner: c}, nil
}

// New picks the transport according to the --tls-client flag.
func New(useTLSClient bool, timeout time.Duration) (HTTPClient, error) {
	if useTLSClient {
		return NewTLSClient(timeout)
	}
	return NewStdClient(timeout), nil
}

// timeoutMillis converts d for tls-client, rounding partial milliseconds up.
// tls-client substitutes its own default when no timeout option is given,
// so zero has to be passed explicitly.
func timeoutMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

type tlsWrapper struct {
	inner tls_client.HttpClient
}

func (w *tlsWrapper) Do(req *http.Request) (*http.Response, error) {
	fReq, err := fhttp.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		fReq.Header[k] = v
	}
	fReq.ContentLength = req.ContentLength

	resp, err := w.inner.Do(fReq)
	if err != nil {
		return nil, err
	}

	netResp := &http.Response{
		Status:           resp.Status,
		StatusCode:       resp.StatusCode,
		Proto:            resp.Proto,
		ProtoMajor:       resp.ProtoMajor,
		ProtoMinor:       resp.ProtoMinor,
		ContentLength:    resp.ContentLength,
		Body:             resp.Body,
		Header:           make(http.Header, len(resp.Header)),
		Uncompressed:     resp.Uncompressed,
		TransferEncoding: resp.TransferEncoding,
		Request:          req,
	}
	for k, v := range resp.Header {
		netResp.Header[k] = v
	}
	return netResp, nil
}
