package netutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func trustedSet(ips ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		set[ip] = struct{}{}
	}
	return set
}

func TestResolveClientIPReverseProxyOff(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Forwarded-For", "203.0.113.9")
	headers.Set("Forwarded", "for=198.51.100.17")

	// Headers are ignored even when the peer is listed as trusted.
	got := ResolveClientIP("192.0.2.1:53712", headers, false, trustedSet("192.0.2.1"))
	assert.Equal(t, "192.0.2.1", got)
}

func TestResolveClientIPUntrustedPeer(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Forwarded-For", "203.0.113.9")

	got := ResolveClientIP("192.0.2.1:53712", headers, true, trustedSet("10.0.0.5"))
	assert.Equal(t, "192.0.2.1", got)
}

func TestResolveClientIPTrustedXFF(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.5, 10.0.0.6")

	got := ResolveClientIP("10.0.0.5:41000", headers, true, trustedSet("10.0.0.5"))
	assert.Equal(t, "203.0.113.9", got)
}

func TestResolveClientIPForwardedPreferred(t *testing.T) {
	headers := http.Header{}
	headers.Set("Forwarded", "for=198.51.100.17;proto=https")
	headers.Set("X-Forwarded-For", "203.0.113.9")

	got := ResolveClientIP("10.0.0.5:41000", headers, true, trustedSet("10.0.0.5"))
	assert.Equal(t, "198.51.100.17", got)
}

func TestResolveClientIPForwardedQuotedIPv6(t *testing.T) {
	headers := http.Header{}
	headers.Set("Forwarded", `for="[2001:db8::1]";proto=https`)

	got := ResolveClientIP("10.0.0.5:41000", headers, true, trustedSet("10.0.0.5"))
	assert.Equal(t, "2001:db8::1", got)
}

func TestResolveClientIPNoHeaders(t *testing.T) {
	got := ResolveClientIP("10.0.0.5:41000", http.Header{}, true, trustedSet("10.0.0.5"))
	assert.Equal(t, "10.0.0.5", got)
}

func TestResolveClientIPIPv6Peer(t *testing.T) {
	got := ResolveClientIP("[2001:db8::1]:443", http.Header{}, true, nil)
	assert.Equal(t, "2001:db8::1", got)
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "192.0.2.1", StripPort("192.0.2.1:8080"))
	assert.Equal(t, "2001:db8::1", StripPort("[2001:db8::1]:8080"))
	assert.Equal(t, "192.0.2.1", StripPort("192.0.2.1"))
	assert.Equal(t, "2001:db8::1", StripPort("[2001:db8::1]"))
}

func TestCleanToken(t *testing.T) {
	assert.Equal(t, "203.0.113.9", cleanToken(` "203.0.113.9" `))
	assert.Equal(t, "2001:db8::1", cleanToken(`"[2001:db8::1]"`))
	assert.Equal(t, "2001:db8::1", cleanToken("[2001:db8::1]:4711"))
}
