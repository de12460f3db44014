package auth

import (
	"net/netip"
	"strings"
)

// Classification is the origin verdict for one source address.
type Classification struct {
	Internal          bool
	RequiresTwoFactor bool
}

// Classify decides whether a source address is internal by matching it
// against the whitelist. An address is internal iff it matches at least
// one pattern — exact, per-octet wildcard, or CIDR. There is no implicit
// trust of private ranges, and unparseable input fails closed: external,
// second factor required.
func Classify(sourceIP string, patterns []string) Classification {
	addr, err := netip.ParseAddr(strings.TrimSpace(sourceIP))
	if err != nil {
		return Classification{Internal: false, RequiresTwoFactor: true}
	}
	addr = addr.Unmap()

	for _, pattern := range patterns {
		if matchesPattern(addr, strings.TrimSpace(pattern)) {
			return Classification{Internal: true, RequiresTwoFactor: false}
		}
	}
	return Classification{Internal: false, RequiresTwoFactor: true}
}

func matchesPattern(addr netip.Addr, pattern string) bool {
	switch {
	case pattern == "":
		return false
	case strings.Contains(pattern, "/"):
		return matchesCIDR(addr, pattern)
	case strings.Contains(pattern, "*"):
		return matchesWildcard(addr, pattern)
	default:
		exact, err := netip.ParseAddr(pattern)
		if err != nil {
			return false
		}
		return exact.Unmap() == addr
	}
}

// matchesCIDR masks both the candidate and the range base with the
// prefix length and compares; netip.Prefix.Contains does exactly that.
func matchesCIDR(addr netip.Addr, pattern string) bool {
	prefix, err := netip.ParsePrefix(pattern)
	if err != nil {
		return false
	}
	return prefix.Masked().Contains(addr)
}

// matchesWildcard compares dotted-quad octets, where "*" in the pattern
// matches any value. Wildcard patterns are IPv4-only.
func matchesWildcard(addr netip.Addr, pattern string) bool {
	if !addr.Is4() {
		return false
	}
	want := strings.Split(pattern, ".")
	got := strings.Split(addr.String(), ".")
	if len(want) != 4 || len(got) != 4 {
		return false
	}
	for i := range want {
		if want[i] == "*" {
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
