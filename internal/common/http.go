package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller address without its port. RemoteAddr is the
// TCP peer unless the router was configured to trust proxy headers, in which
// case chi's RealIP has already replaced it with the forwarded address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
