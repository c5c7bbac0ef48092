// Package access implements the IP allow-list used by the access control
// gate. Rules are parsed once at startup and are immutable afterwards; there
// is no runtime writer, so lookups need no locking.
package access

import (
	"strings"

	"github.com/livegateway/livegateway/internal/netutil"
)

// List holds the configured access rules: exact IP addresses and CIDR
// ranges. An empty list allows every client, making the feature opt-in.
type List struct {
	exact  map[string]struct{}
	ranges []string
}

// NewList parses a set of rule strings into a List. A rule containing a
// slash is treated as a CIDR range, anything else as an exact address.
// Blank entries are dropped.
func NewList(rules []string) *List {
	l := &List{exact: make(map[string]struct{})}
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		if strings.Contains(rule, "/") {
			l.ranges = append(l.ranges, rule)
		} else {
			l.exact[rule] = struct{}{}
		}
	}
	return l
}

// Empty reports whether no rules are configured.
func (l *List) Empty() bool {
	return len(l.exact) == 0 && len(l.ranges) == 0
}

// Allowed reports whether ip matches any configured rule. With no rules
// configured every address is allowed.
func (l *List) Allowed(ip string) bool {
	if l.Empty() {
		return true
	}
	if _, ok := l.exact[ip]; ok {
		return true
	}
	for _, cidr := range l.ranges {
		if netutil.InRange(ip, cidr) {
			return true
		}
	}
	return false
}

// Rules returns the configured rules for logging.
func (l *List) Rules() []string {
	rules := make([]string, 0, len(l.exact)+len(l.ranges))
	for ip := range l.exact {
		rules = append(rules, ip)
	}
	rules = append(rules, l.ranges...)
	return rules
}

// NewTrustedProxySet builds the immutable set of proxy addresses permitted
// to override the transport peer via forwarding headers.
func NewTrustedProxySet(ips []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		set[ip] = struct{}{}
	}
	return set
}
