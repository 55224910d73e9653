package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// PingService checks that something accepts TCP connections at serviceURL's host and port.
// The scheme only supplies the default port.
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Hostname() == "" {
		return fmt.Errorf("invalid URL %q: no host", serviceURL)
	}

	port := parsedURL.Port()
	if port == "" {
		switch parsedURL.Scheme {
		case "https":
			port = "443"
		case "mongodb":
			port = "27017"
		default:
			port = "80"
		}
	}

	address := net.JoinHostPort(parsedURL.Hostname(), port)

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(ctx context.Context, authzURL string) error {
	return PingService(ctx, authzURL, 1500*time.Millisecond)
}
