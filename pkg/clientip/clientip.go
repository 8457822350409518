package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client address of r without the port, in
// canonical form. Only r.RemoteAddr is read; behind a proxy, chi's RealIP
// middleware must run first so RemoteAddr already holds the forwarded address.
func RealClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.String()
	}
	return host
}
