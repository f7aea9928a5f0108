package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	netproxy "golang.org/x/net/proxy"
)

func applyProxy(transport *http.Transport, raw string) error {
	switch strings.ToLower(raw) {
	case "", "0", "false", "off", "no", "none", "direct":
		transport.Proxy = nil
		return nil
	case "env":
		transport.Proxy = http.ProxyFromEnvironment
		return nil
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy url %q: %w", raw, err)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("invalid proxy url %q: missing host", raw)
	}

	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5":
		var auth *netproxy.Auth
		if u.User != nil {
			pw, _ := u.User.Password()
			auth = &netproxy.Auth{User: u.User.Username(), Password: pw}
		}
		dialer, err := netproxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{Timeout: 10 * time.Second})
		if err != nil {
			return fmt.Errorf("socks5 proxy %q: %w", u.Host, err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(netproxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		}
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme %q (http, https or socks5)", u.Scheme)
	}
}
