package httpx

import (
	"net/http"
	"strings"
	"time"
)

type ClientOptions struct {
	Timeout time.Duration

	// Proxy selects the outbound proxy:
	//   ""                     direct (HTTP_PROXY/HTTPS_PROXY are ignored)
	//   "env"                  http.ProxyFromEnvironment
	//   "socks5://host:port"   SOCKS5 dialer
	//   URL / host:port        fixed HTTP(S) proxy
	Proxy string

	// Transport allows providing a pre-configured transport.
	// When nil, it clones http.DefaultTransport.
	Transport *http.Transport
}

func NewClient(opts ClientOptions) (*http.Client, error) {
	var transport *http.Transport
	if opts.Transport != nil {
		transport = opts.Transport.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	if err := applyProxy(transport, strings.TrimSpace(opts.Proxy)); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
