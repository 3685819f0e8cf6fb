package fetch

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns the default transport used to reach the
// collection endpoint. Redirects are not followed: a 3xx response is
// handed back as is.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// AllowSelfSigned returns a copy of d that accepts any server certificate
// and any host name. Only *http.Client values whose transport is nil or
// an *http.Transport can be reconfigured; anything else is an error.
func AllowSelfSigned(d Doer) (Doer, error) {
	client, ok := d.(*http.Client)
	if !ok || client == nil {
		return nil, fmt.Errorf("cannot reconfigure TLS on %T", d)
	}

	var transport *http.Transport
	switch t := client.Transport.(type) {
	case nil:
		base, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("cannot reconfigure TLS on default transport %T", http.DefaultTransport)
		}
		transport = base.Clone()
	case *http.Transport:
		transport = t.Clone()
	default:
		return nil, fmt.Errorf("cannot reconfigure TLS on transport %T", t)
	}

	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.InsecureSkipVerify = true

	insecure := *client
	insecure.Transport = transport
	return &insecure, nil
}
