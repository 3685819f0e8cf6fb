// Package fetch sends shaped requests to the collection endpoint and sorts
// the outcome into success, client rejection or server/transport failure.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// MaxResponseSize bounds how much of a response body is read. Larger
// bodies fail with ErrResponseTooLarge.
const MaxResponseSize = 10 << 20

// Doer dispatches an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// ReconfigureFunc derives a doer that accepts any certificate from the
// validating one.
type ReconfigureFunc func(Doer) (Doer, error)

// Request is a fully shaped request. Body, when non-nil, is JSON encoded.
type Request struct {
	URL                     string
	Method                  string
	Headers                 map[string]string
	Body                    any
	IgnoreCertificateErrors bool
}

type Config struct {
	Client Doer
	// Reconfigure defaults to AllowSelfSigned.
	Reconfigure ReconfigureFunc
	Logger      *slog.Logger
}

type Fetcher struct {
	client      Doer
	reconfigure ReconfigureFunc
	logger      *slog.Logger

	mu       sync.Mutex
	insecure Doer
}

func New(cfg Config) *Fetcher {
	f := &Fetcher{
		client:      cfg.Client,
		reconfigure: cfg.Reconfigure,
		logger:      cfg.Logger,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.reconfigure == nil {
		f.reconfigure = AllowSelfSigned
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch sends req and classifies the response. Exactly one request is
// dispatched per call.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (JSON, error) {
	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return JSON{}, err
	}

	client := f.client
	if req.IgnoreCertificateErrors {
		client = f.insecureClient()
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return JSON{}, &TransportError{Err: err}
	}
	return Classify(resp)
}

// insecureClient returns the doer used for self-signed mode, falling back
// to the validating doer when it cannot be built.
func (f *Fetcher) insecureClient() Doer {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insecure != nil {
		return f.insecure
	}
	insecure, err := f.reconfigure(f.client)
	if err != nil || insecure == nil {
		f.logger.Warn("cannot accept self-signed certificates, sending with certificate validation",
			"error", err)
		return f.client
	}
	f.insecure = insecure
	return insecure
}

func newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil && method != http.MethodGet {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if ct := httpReq.Header.Get("Content-Type"); body != nil && (ct == "" || strings.EqualFold(ct, "application/json")) {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return httpReq, nil
}

// Classify turns a response into a JSON body or one of the fetch errors.
// It closes the response body.
func Classify(resp *http.Response) (JSON, error) {
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 400:
		data, err := readBody(resp)
		if err != nil {
			return JSON{}, err
		}
		return NewJSON(string(data)), nil
	case code >= 400 && code < 500:
		data, err := readBody(resp)
		if err != nil {
			return JSON{}, err
		}
		return JSON{}, &ClientRejectedError{StatusCode: code, Detail: string(data)}
	default:
		return JSON{}, &ServerError{StatusCode: code, Detail: statusMessage(resp)}
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, ErrNoResponseBody
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if len(data) > MaxResponseSize {
		return nil, &TransportError{Err: fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, MaxResponseSize)}
	}
	return data, nil
}

// statusMessage returns the reason phrase of resp, e.g. "Service
// Unavailable" for a 503.
func statusMessage(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if msg := strings.TrimPrefix(resp.Status, prefix); msg != "" && msg != resp.Status {
		return msg
	}
	if msg := http.StatusText(resp.StatusCode); msg != "" {
		return msg
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
