package netutil

import (
	"fmt"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInRangeIPv4(t *testing.T) {
	tests := []struct {
		ip   string
		cidr string
		want bool
	}{
		{"10.1.2.3", "10.0.0.0/8", true},
		{"11.0.0.1", "10.0.0.0/8", false},
		{"192.168.1.55", "192.168.1.0/24", true},
		{"192.168.2.55", "192.168.1.0/24", false},
		{"172.16.0.1", "172.16.0.0/12", true},
		{"172.32.0.1", "172.16.0.0/12", false},
		{"203.0.113.7", "203.0.113.7/32", true},
		{"203.0.113.8", "203.0.113.7/32", false},
		{"8.8.8.8", "0.0.0.0/0", true},
		{"255.255.255.255", "0.0.0.0/0", true},
		{"10.0.0.1", "10.0.0.0/31", true},
		{"10.0.0.2", "10.0.0.0/31", false},
		{"128.0.0.1", "128.0.0.0/1", true},
		{"127.255.255.255", "128.0.0.0/1", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s in %s", tt.ip, tt.cidr), func(t *testing.T) {
			assert.Equal(t, tt.want, InRange(tt.ip, tt.cidr))
		})
	}
}

// TestInRangeIPv4Reference cross-checks the matcher against net/netip for a
// grid of canonical addresses and prefixes.
func TestInRangeIPv4Reference(t *testing.T) {
	ips := []string{"10.0.0.1", "10.1.255.254", "10.128.0.1", "11.0.0.0", "192.168.1.1", "172.20.10.5"}
	networks := []string{"10.0.0.0", "10.1.0.0", "192.168.0.0", "172.16.0.0"}
	prefixes := []int{0, 1, 7, 8, 12, 16, 24, 31, 32}

	for _, ip := range ips {
		for _, network := range networks {
			for _, prefix := range prefixes {
				cidr := fmt.Sprintf("%s/%d", network, prefix)
				ref, err := netip.ParsePrefix(cidr)
				require.NoError(t, err)
				addr, err := netip.ParseAddr(ip)
				require.NoError(t, err)
				assert.Equal(t, ref.Contains(addr), InRange(ip, cidr), "%s in %s", ip, cidr)
			}
		}
	}
}

func TestInRangeIPv6(t *testing.T) {
	tests := []struct {
		ip   string
		cidr string
		want bool
	}{
		{"2001:db8::1", "2001:db8::/32", true},
		{"2001:db9::1", "2001:db8::/32", false},
		{"::1", "::1/128", true},
		{"::2", "::1/128", false},
		{"2001:db8::1", "::1/128", false},
		{"fe80::abcd", "fe80::/10", true},
		{"fec0::1", "fe80::/10", false},
		{"2001:db8:1:2:3:4:5:6", "2001:db8:1:2::/64", true},
		{"2001:db8:1:3:3:4:5:6", "2001:db8:1:2::/64", false},
		{"::", "::/0", true},
		{"ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "::/0", true},
		{"ABCD::1", "abcd::/16", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s in %s", tt.ip, tt.cidr), func(t *testing.T) {
			assert.Equal(t, tt.want, InRange(tt.ip, tt.cidr))
		})
	}
}

func TestInRangeIPv6Reference(t *testing.T) {
	ips := []string{"2001:db8::1", "2001:db8:ffff::1", "2001:db9::1", "fe80::1", "::1"}
	networks := []string{"2001:db8::", "fe80::", "::"}
	prefixes := []int{0, 1, 10, 16, 32, 64, 127, 128}

	for _, ip := range ips {
		for _, network := range networks {
			for _, prefix := range prefixes {
				cidr := fmt.Sprintf("%s/%d", network, prefix)
				ref, err := netip.ParsePrefix(cidr)
				require.NoError(t, err)
				addr, err := netip.ParseAddr(ip)
				require.NoError(t, err)
				assert.Equal(t, ref.Contains(addr), InRange(ip, cidr), "%s in %s", ip, cidr)
			}
		}
	}
}

func TestInRangeFamilyMismatch(t *testing.T) {
	assert.False(t, InRange("10.0.0.1", "2001:db8::/32"))
	assert.False(t, InRange("2001:db8::1", "10.0.0.0/8"))
}

func TestInRangeMalformed(t *testing.T) {
	cases := []struct {
		ip   string
		cidr string
	}{
		{"10.0.0.1", "10.0.0.0"},          // bare IP is not a CIDR
		{"10.0.0.1", "10.0.0.0/33"},       // prefix out of range
		{"10.0.0.1", "10.0.0.0/"},         // empty prefix
		{"10.0.0.1", "10.0.0.0/08"},       // leading zero prefix
		{"10.0.0.1", "10.0.0.0/-1"},       // negative prefix
		{"10.0.0.256", "10.0.0.0/8"},      // octet overflow
		{"10.0.0.01", "10.0.0.0/8"},       // leading zero octet
		{"10.0.0", "10.0.0.0/8"},          // too few octets
		{"10.0.0.0.1", "10.0.0.0/8"},      // too many octets
		{"", "10.0.0.0/8"},                // empty ip
		{"10.0.0.1", ""},                  // empty cidr
		{"2001:db8::1", "2001:db8::/129"}, // v6 prefix out of range
		{"2001:db8::1::2", "2001:db8::/32"},        // double compression
		{"2001:db8:1:2:3:4:5:6:7", "2001:db8::/32"}, // nine groups
		{"2001:db8:12345::", "2001:db8::/32"},      // five-digit group
		{"2001:db8::g", "2001:db8::/32"},           // non-hex digit
		{"1:2:3:4:5:6:7", "::/0"},                  // seven groups, no compression
		{"not an ip", "10.0.0.0/8"},
		{"10.0.0.1", "not a cidr/8"},
	}

	for _, tt := range cases {
		assert.False(t, InRange(tt.ip, tt.cidr), "%q in %q should be false", tt.ip, tt.cidr)
	}
}

func TestInRangeCompressionExpandsExactly(t *testing.T) {
	// "::" must stand for at least one zero group.
	assert.False(t, InRange("1:2:3:4:5:6:7:8", "1:2:3:4:5:6:7:8::/128"))
	assert.True(t, InRange("1:2:3:4:5:6:7:0", "1:2:3:4:5:6:7::/128"))
	assert.True(t, InRange("0:0:0:0:0:0:0:1", "::1/128"))
}
