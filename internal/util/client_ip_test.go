package util

import (
	"net"
	"net/http/httptest"
	"testing"
)

func newProxies(t *testing.T, entries ...string) *TrustedProxies {
	t.Helper()
	proxies, err := NewTrustedProxies(entries)
	if err != nil {
		t.Fatalf("new trusted proxies %v: %v", entries, err)
	}
	return proxies
}

func resolveIP(t *testing.T, remoteAddr string, headers map[string]string, trusted *TrustedProxies) string {
	t.Helper()
	req := httptest.NewRequest("GET", "http://bookswap.test/api/books", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return ClientIP(req, trusted)
}

func TestClientIPWithoutTrustedProxies(t *testing.T) {
	// With no allowlist the reverse-proxy headers are attacker-controlled
	// and must be ignored for rate-limit keying.
	got := resolveIP(t, "198.51.100.10:42180", map[string]string{
		"X-Forwarded-For": "203.0.113.5",
		"X-Real-IP":       "203.0.113.6",
	}, nil)
	if got != "198.51.100.10" {
		t.Fatalf("client ip = %q, want direct peer", got)
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	proxies := newProxies(t, "10.0.0.0/8")

	t.Run("single forwarded hop", func(t *testing.T) {
		got := resolveIP(t, "10.0.0.20:42180", map[string]string{
			"X-Forwarded-For": "203.0.113.5",
		}, proxies)
		if got != "203.0.113.5" {
			t.Fatalf("client ip = %q, want forwarded address", got)
		}
	})

	t.Run("chain walks right to first untrusted", func(t *testing.T) {
		got := resolveIP(t, "10.0.0.20:42180", map[string]string{
			"X-Forwarded-For": "203.0.113.5, 10.0.0.10",
		}, proxies)
		if got != "203.0.113.5" {
			t.Fatalf("client ip = %q, want first untrusted hop", got)
		}
	})

	t.Run("fully trusted chain keeps leftmost", func(t *testing.T) {
		got := resolveIP(t, "10.0.0.20:42180", map[string]string{
			"X-Forwarded-For": "10.0.0.5, 10.0.0.10",
		}, proxies)
		if got != "10.0.0.5" {
			t.Fatalf("client ip = %q, want leftmost hop", got)
		}
	})

	t.Run("x-real-ip fallback when xff unusable", func(t *testing.T) {
		got := resolveIP(t, "10.0.0.20:42180", map[string]string{
			"X-Forwarded-For": "not-an-address",
			"X-Real-IP":       "203.0.113.7",
		}, proxies)
		if got != "203.0.113.7" {
			t.Fatalf("client ip = %q, want real-ip fallback", got)
		}
	})

	t.Run("no headers yields proxy address", func(t *testing.T) {
		if got := resolveIP(t, "10.0.0.20:42180", nil, proxies); got != "10.0.0.20" {
			t.Fatalf("client ip = %q, want remote addr host", got)
		}
	})
}

func TestClientIPUntrustedPeerIgnoresHeaders(t *testing.T) {
	proxies := newProxies(t, "192.168.1.10")
	got := resolveIP(t, "198.51.100.10:42180", map[string]string{
		"X-Forwarded-For": "203.0.113.5",
	}, proxies)
	if got != "198.51.100.10" {
		t.Fatalf("client ip = %q, headers from untrusted peer leaked through", got)
	}
}

func TestNewTrustedProxiesParsing(t *testing.T) {
	proxies := newProxies(t, "10.0.0.0/8", "192.168.1.10", "2001:db8::1")
	for _, raw := range []string{"10.1.2.3", "192.168.1.10", "2001:db8::1"} {
		if !proxies.Contains(net.ParseIP(raw)) {
			t.Errorf("%s should be trusted", raw)
		}
	}
	if proxies.Contains(net.ParseIP("203.0.113.5")) {
		t.Error("203.0.113.5 should not be trusted")
	}

	if _, err := NewTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Error("expected parse error for malformed entry")
	}

	// Empty or blank input means trust nobody, expressed as a nil allowlist.
	empty, err := NewTrustedProxies([]string{" ", ""})
	if err != nil {
		t.Fatalf("blank entries: %v", err)
	}
	if empty != nil {
		t.Fatalf("empty allowlist = %+v, want nil", empty)
	}
	if empty.Contains(net.ParseIP("10.0.0.1")) {
		t.Error("nil allowlist must trust nothing")
	}
}
