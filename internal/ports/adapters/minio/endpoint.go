package minio

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseEndpoint accepts "host[:port]" or "http(s)://host[:port]" and returns the
// bare host the client dials. An https scheme forces TLS.
func ParseEndpoint(raw string, useSSL bool) (host string, secure bool, err error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", false, fmt.Errorf("invalid MINIO_ENDPOINT: host is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	} else {
		useSSL = useSSL || strings.HasPrefix(strings.ToLower(raw), "https://")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid MINIO_ENDPOINT: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false, fmt.Errorf("invalid MINIO_ENDPOINT %q: scheme must be http or https", raw)
	}
	if u.User != nil {
		return "", false, fmt.Errorf("invalid MINIO_ENDPOINT %q: userinfo is not allowed, use MINIO_ACCESS_KEY", raw)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return "", false, fmt.Errorf("invalid MINIO_ENDPOINT %q: path, query and fragment are not allowed", raw)
	}
	if u.Hostname() == "" {
		return "", false, fmt.Errorf("invalid MINIO_ENDPOINT %q: host is required", raw)
	}
	return strings.ToLower(u.Host), useSSL, nil
}
