package netutil

import (
	"net"
	"net/http"
	"strings"
)

// ResolveClientIP determines the trustworthy client address for a request.
//
// With reverseProxy disabled the immediate transport peer is always returned
// and forwarding headers are never consulted. With it enabled, headers are
// honored only when the immediate peer is one of the trusted proxies; the
// standards-form Forwarded header's for= token is preferred over the
// left-most X-Forwarded-For entry. Trust is single-hop: the gateway never
// walks a multi-proxy chain.
func ResolveClientIP(remoteAddr string, headers http.Header, reverseProxy bool, trustedProxies map[string]struct{}) string {
	peer := StripPort(remoteAddr)
	if !reverseProxy {
		return peer
	}
	if _, trusted := trustedProxies[peer]; !trusted {
		return peer
	}

	if forwarded := headers.Get("Forwarded"); forwarded != "" {
		if ip := forwardedFor(forwarded); ip != "" {
			return ip
		}
	}

	if xff := headers.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := cleanToken(first); ip != "" {
			return ip
		}
	}

	return peer
}

// StripPort removes the port from a host:port transport address. Bracketed
// IPv6 literals lose their brackets as well. Input without a port is
// returned unchanged.
func StripPort(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return strings.Trim(remoteAddr, "[]")
}

// forwardedFor extracts the for= token from the first element of a
// Forwarded header (RFC 7239). Parameters beyond for= are ignored.
func forwardedFor(header string) string {
	element, _, _ := strings.Cut(header, ",")
	for _, param := range strings.Split(element, ";") {
		key, value, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(key), "for") {
			continue
		}
		return cleanToken(value)
	}
	return ""
}

// cleanToken strips surrounding whitespace, quotes, and IPv6 bracket
// notation from an extracted address token.
func cleanToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.Trim(token, `"`)
	if strings.HasPrefix(token, "[") {
		if end := strings.IndexByte(token, ']'); end > 0 {
			return token[1:end]
		}
		return strings.Trim(token, "[]")
	}
	return token
}
