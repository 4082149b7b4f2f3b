package utils

import (
	"net"
	"strings"
)

// NormalizeIP returns the canonical textual form of a client address, or ""
// when it does not parse. A trailing port is stripped first.
func NormalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	ip := net.ParseIP(strings.Trim(raw, "[]"))
	if ip == nil {
		return ""
	}
	return ip.String()
}
