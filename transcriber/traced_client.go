package transcriber

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type TracedClient struct {
	client *http.Client
}

func NewTracedClient(timeout time.Duration) *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// httptrace callbacks fire on the transport's read and write goroutines,
// so every timestamp and metric is guarded by mu.
type requestTrace struct {
	mu      sync.Mutex
	metrics NetworkMetrics

	getConnStart, dnsStart, tcpStart, tlsStart time.Time
	gotConn, wroteHeaders, wroteRequest         time.Time
	firstByte                                   time.Time
}

func (t *requestTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(_ string) { t.mark(&t.getConnStart) },
		GotConn: func(info httptrace.GotConnInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.gotConn = time.Now()
			t.metrics.ConnWait = t.gotConn.Sub(t.getConnStart)
			t.metrics.ConnReused = info.Reused
		},
		DNSStart: func(_ httptrace.DNSStartInfo) { t.mark(&t.dnsStart) },
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.metrics.DNS = time.Since(t.dnsStart)
		},
		ConnectStart: func(_, _ string) { t.mark(&t.tcpStart) },
		ConnectDone: func(_, _ string, _ error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.metrics.TCP = time.Since(t.tcpStart)
		},
		TLSHandshakeStart: func() { t.mark(&t.tlsStart) },
		TLSHandshakeDone: func(st tls.ConnectionState, _ error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.metrics.TLS = time.Since(t.tlsStart)
			t.metrics.TLSProtocol = tls.VersionName(st.Version)
		},
		WroteHeaders: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.wroteHeaders = time.Now()
			t.metrics.ReqHeaders = t.wroteHeaders.Sub(t.gotConn)
		},
		WroteRequest: func(_ httptrace.WroteRequestInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.wroteRequest = time.Now()
			t.metrics.ReqBody = t.wroteRequest.Sub(t.wroteHeaders)
		},
		GotFirstResponseByte: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.firstByte = time.Now()
			t.metrics.TTFB = t.firstByte.Sub(t.wroteRequest)
		},
	}
}

func (t *requestTrace) mark(ts *time.Time) {
	t.mu.Lock()
	*ts = time.Now()
	t.mu.Unlock()
}

// finish records the download and total times and returns a copy of the
// metrics. The transport may still be running write callbacks, so the copy
// is taken under the lock.
func (t *requestTrace) finish(reqStart time.Time) *NetworkMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.firstByte.IsZero() {
		t.metrics.Download = time.Since(t.firstByte)
	}
	t.metrics.Total = time.Since(reqStart)
	m := t.metrics
	return &m
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	rt := &requestTrace{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), rt.clientTrace()))
	reqStart := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    rt.finish(reqStart),
	}, nil
}

// Warm opens a connection ahead of the first upload so the TLS handshake
// is not paid on the first phrase. It returns the handshake time.
func (c *TracedClient) Warm(ctx context.Context, url string) time.Duration {
	rt := &requestTrace{}
	trace := rt.clientTrace()

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.metrics.TLS
}
