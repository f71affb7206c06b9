package telemetry

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrEndpointUnreachable is returned by Setup when the collector cannot be dialed.
	ErrEndpointUnreachable = goerr.New("telemetry endpoint unreachable")
	// ErrInvalidEndpoint is returned by Setup for a malformed endpoint.
	ErrInvalidEndpoint = goerr.New("invalid telemetry endpoint")
	// ErrUnsupportedProtocol is returned by Setup for an unknown OTLP protocol.
	ErrUnsupportedProtocol = goerr.New("unsupported OTLP protocol")
	// ErrAlreadyInstalled is returned by Install after providers were registered once.
	ErrAlreadyInstalled = goerr.New("telemetry providers already installed")
)
