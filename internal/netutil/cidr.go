// Package netutil implements the address classification primitives used by
// the access control gate: a strict IPv4/IPv6 CIDR matcher and a client IP
// resolver that understands proxy forwarding headers.
//
// The parsers here are deliberately stricter than net.ParseIP: octets must be
// canonical decimals without leading zeros and IPv6 zero compression must
// expand to exactly eight groups. Anything malformed simply fails to match,
// it never produces an error.
package netutil

import "strings"

// InRange reports whether ip falls inside the CIDR range. Malformed input of
// any kind returns false; the function never fails. An address-family
// mismatch between ip and the network part of cidr also returns false.
func InRange(ip, cidr string) bool {
	network, prefixStr, ok := strings.Cut(cidr, "/")
	if !ok {
		return false
	}

	prefix, ok := parsePrefixLen(prefixStr)
	if !ok {
		return false
	}

	if ipBits, okIP := parseIPv4(ip); okIP {
		netBits, okNet := parseIPv4(network)
		if !okNet || prefix > 32 {
			return false
		}
		mask := ipv4Mask(prefix)
		return ipBits&mask == netBits&mask
	}

	if ipBits, okIP := parseIPv6(ip); okIP {
		netBits, okNet := parseIPv6(network)
		if !okNet || prefix > 128 {
			return false
		}
		return maskedEqual(ipBits, netBits, prefix)
	}

	return false
}

// parsePrefixLen parses the prefix length after the slash. Leading zeros and
// signs are rejected so "08" or "+8" never sneak through.
func parsePrefixLen(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n > 128 {
		return 0, false
	}
	return n, true
}

// parseIPv4 packs a dotted-quad address into 32 bits. Each octet must be a
// canonical decimal 0-255 with no leading zeros.
func parseIPv4(s string) (uint32, bool) {
	var bits uint32
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return 0, false
	}
	for _, octet := range octets {
		if octet == "" || len(octet) > 3 {
			return 0, false
		}
		if len(octet) > 1 && octet[0] == '0' {
			return 0, false
		}
		n := 0
		for i := 0; i < len(octet); i++ {
			c := octet[i]
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return 0, false
		}
		bits = bits<<8 | uint32(n)
	}
	return bits, true
}

// ipv4Mask returns a mask with the top prefix bits set. Prefix 0 masks
// nothing, so every address matches; prefix 32 demands exact equality.
func ipv4Mask(prefix int) uint32 {
	if prefix == 0 {
		return 0
	}
	return ^uint32(0) << (32 - prefix)
}

// parseIPv6 expands zero compression and packs the address into 16 bytes.
// The expansion must yield exactly eight groups of 1-4 hex digits; embedded
// dotted-quad forms are rejected.
func parseIPv6(s string) ([16]byte, bool) {
	var addr [16]byte

	head := s
	tail := ""
	compressed := false
	if i := strings.Index(s, "::"); i >= 0 {
		compressed = true
		head = s[:i]
		tail = s[i+2:]
		if strings.Contains(tail, "::") {
			return addr, false
		}
	}

	headGroups, ok := splitGroups(head)
	if !ok {
		return addr, false
	}
	tailGroups, ok := splitGroups(tail)
	if !ok {
		return addr, false
	}

	total := len(headGroups) + len(tailGroups)
	if compressed {
		// "::" stands in for at least one zero group.
		if total >= 8 {
			return addr, false
		}
	} else if total != 8 || len(tailGroups) != 0 {
		return addr, false
	}

	groups := make([]uint16, 0, 8)
	for _, g := range headGroups {
		v, okGroup := parseHexGroup(g)
		if !okGroup {
			return addr, false
		}
		groups = append(groups, v)
	}
	for i := total; i < 8; i++ {
		groups = append(groups, 0)
	}
	for _, g := range tailGroups {
		v, okGroup := parseHexGroup(g)
		if !okGroup {
			return addr, false
		}
		groups = append(groups, v)
	}

	for i, g := range groups {
		addr[i*2] = byte(g >> 8)
		addr[i*2+1] = byte(g)
	}
	return addr, true
}

// splitGroups splits one side of a "::" compression into its colon-separated
// groups. An empty side contributes no groups.
func splitGroups(s string) ([]string, bool) {
	if s == "" {
		return nil, true
	}
	groups := strings.Split(s, ":")
	for _, g := range groups {
		if g == "" {
			return nil, false
		}
	}
	return groups, true
}

// parseHexGroup parses one 1-4 digit hexadecimal group.
func parseHexGroup(s string) (uint16, bool) {
	if s == "" || len(s) > 4 {
		return 0, false
	}
	var v uint16
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint16
		switch {
		case c >= '0' && c <= '9':
			d = uint16(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint16(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint16(c-'A') + 10
		default:
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

// maskedEqual compares two 128-bit addresses under a prefix mask.
func maskedEqual(a, b [16]byte, prefix int) bool {
	full := prefix / 8
	for i := 0; i < full; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	rem := prefix % 8
	if rem == 0 {
		return true
	}
	mask := byte(0xff) << (8 - rem)
	return a[full]&mask == b[full]&mask
}
