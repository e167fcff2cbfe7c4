package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// Transports holds the two routes a provider call can take.
type Transports struct {
	// Direct never uses a proxy, not even one from the environment.
	Direct *http.Client
	// Proxied routes through the configured proxy; nil when none is configured.
	Proxied *http.Client
}

func newTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// NewTransports builds the direct client and, when proxyURL is set, a client
// that routes through it. http, https, socks5 and socks5h proxies are supported.
func NewTransports(proxyURL string) (Transports, error) {
	t := Transports{Direct: &http.Client{Transport: newTransport()}}
	if proxyURL == "" {
		return t, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return Transports{}, fmt.Errorf("invalid proxy URL: %w", err)
	}

	tr := newTransport()
	switch u.Scheme {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return Transports{}, fmt.Errorf("failed to create SOCKS dialer: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			tr.DialContext = cd.DialContext
		} else {
			tr.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return Transports{}, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	t.Proxied = &http.Client{Transport: tr}
	return t, nil
}
