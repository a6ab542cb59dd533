package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestSanitizeInstance(t *testing.T) {
	cases := map[string]string{
		"alice":      "alice",
		"alice_bob":  "alice_bob",
		"alice bob":  "alice-bob",
		"a.b@c":      "a-b-c",
		"Alice-2026": "Alice-2026",
	}
	for in, want := range cases {
		if got := sanitizeInstance(in); got != want {
			t.Errorf("sanitizeInstance(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNicknameFromTXT(t *testing.T) {
	if got := nicknameFromTXT([]string{"foo=bar", "nickname=alice"}); got != "alice" {
		t.Errorf("nicknameFromTXT = %q, want alice", got)
	}
	if got := nicknameFromTXT([]string{"foo=bar"}); got != "" {
		t.Errorf("nicknameFromTXT = %q, want empty", got)
	}
}

func TestPeerFromEntry_PrefersTXTNicknameOverInstance(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.5")},
		Text:     []string{"nickname=alice"},
	}
	entry.Instance = "alice-laptop"
	entry.HostName = "alice-laptop.local."
	entry.Port = 4010

	p := peerFromEntry(entry)
	if p.Nickname != "alice" {
		t.Errorf("Nickname = %q, want alice (from TXT)", p.Nickname)
	}
	if p.AddrV4 != "192.168.1.5" {
		t.Errorf("AddrV4 = %q, want 192.168.1.5", p.AddrV4)
	}
	if p.Port != 4010 {
		t.Errorf("Port = %d, want 4010", p.Port)
	}
}

func TestPeerFromEntry_FallsBackToInstanceName(t *testing.T) {
	entry := &zeroconf.ServiceEntry{}
	entry.Instance = "alice-laptop"

	p := peerFromEntry(entry)
	if p.Nickname != "alice-laptop" {
		t.Errorf("Nickname = %q, want alice-laptop (fallback to instance)", p.Nickname)
	}
}
