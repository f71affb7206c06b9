package telemetry

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// parseEndpoint validates a normalised endpoint and returns the host:port to dial.
func parseEndpoint(endpoint string) (*url.URL, string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, "", goerr.Wrap(ErrInvalidEndpoint, "failed to parse endpoint",
			goerr.V("endpoint", endpoint),
			goerr.V("cause", err.Error()),
		)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", goerr.Wrap(ErrInvalidEndpoint, "scheme must be http or https", goerr.V("endpoint", endpoint))
	}
	if u.Hostname() == "" {
		return nil, "", goerr.Wrap(ErrInvalidEndpoint, "host is empty", goerr.V("endpoint", endpoint))
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return u, net.JoinHostPort(u.Hostname(), port), nil
}

// checkReachable dials addr once so an absent collector is reported at startup
// instead of as repeated export failures.
func checkReachable(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return goerr.Wrap(ErrEndpointUnreachable, "failed to dial collector",
			goerr.V("addr", addr),
			goerr.V("cause", err.Error()),
			goerr.V("timeout", timeout.String()),
		)
	}
	_ = conn.Close()
	return nil
}
