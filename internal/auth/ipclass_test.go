package auth

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		ip       string
		patterns []string
		internal bool
	}{
		{"exact match", "203.0.113.10", []string{"203.0.113.10"}, true},
		{"exact miss", "203.0.113.11", []string{"203.0.113.10"}, false},
		{"wildcard last octet", "192.168.1.77", []string{"192.168.1.*"}, true},
		{"wildcard wrong subnet", "192.168.2.77", []string{"192.168.1.*"}, false},
		{"wildcard middle octet", "10.5.9.1", []string{"10.*.9.1"}, true},
		{"cidr slash 8", "10.1.2.3", []string{"10.0.0.0/8"}, true},
		{"cidr slash 24 match", "10.1.2.3", []string{"10.1.2.0/24"}, true},
		{"cidr slash 24 miss", "10.1.3.5", []string{"10.1.2.0/24"}, false},
		{"private range not implicitly trusted", "192.168.0.1", []string{"203.0.113.0/24"}, false},
		{"empty whitelist", "127.0.0.1", nil, false},
		{"second pattern wins", "172.16.4.9", []string{"198.51.100.1", "172.16.0.0/12"}, true},
		{"garbage ip fails closed", "not-an-ip", []string{"0.0.0.0/0"}, false},
		{"garbage pattern skipped", "10.0.0.1", []string{"10.0.0/33", "10.0.0.1"}, true},
		{"ipv4 mapped ipv6", "::ffff:10.1.2.3", []string{"10.0.0.0/8"}, true},
		{"wildcard never matches ipv6", "2001:db8::1", []string{"*.*.*.*"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.ip, tc.patterns)
			if got.Internal != tc.internal {
				t.Fatalf("Classify(%q, %v).Internal = %v, want %v", tc.ip, tc.patterns, got.Internal, tc.internal)
			}
			if got.RequiresTwoFactor != !tc.internal {
				t.Fatalf("RequiresTwoFactor must equal !Internal, got %v for internal=%v", got.RequiresTwoFactor, got.Internal)
			}
		})
	}
}
