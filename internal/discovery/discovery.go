package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type CipherMesh peers register under.
const ServiceType = "_ciphermesh._tcp"

// Domain is the mDNS domain searched and registered in.
const Domain = "local."

// browseTimeout bounds a single Browse call; callers loop it via ctx.
const browseTimeout = 10 * time.Second

// Peer is a CipherMesh peer discovered on the local network.
type Peer struct {
	Nickname string
	Host     string
	AddrV4   string
	AddrV6   string
	Port     int
}

// Advertiser publishes this node's presence over mDNS.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers nickname as reachable at port on every local
// interface. Call Shutdown when the node stops listening.
func Advertise(nickname string, port int) (*Advertiser, error) {
	instance := sanitizeInstance(nickname)
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, []string{"nickname=" + nickname}, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: advertise %s: %w", instance, err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
}

// Browse searches for CipherMesh peers until ctx is cancelled, invoking
// onFound for each one as it is resolved. It returns when ctx is done or
// the underlying resolver fails to start.
func Browse(ctx context.Context, onFound func(Peer)) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("discovery: new resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	go func() {
		for entry := range entries {
			onFound(peerFromEntry(entry))
		}
	}()

	for {
		browseCtx, cancel := context.WithTimeout(ctx, browseTimeout)
		err := resolver.Browse(browseCtx, ServiceType, Domain, entries)
		cancel()
		if err != nil {
			return fmt.Errorf("discovery: browse: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-browseCtx.Done():
		}
	}
}

func peerFromEntry(entry *zeroconf.ServiceEntry) Peer {
	p := Peer{
		Host: entry.HostName,
		Port: entry.Port,
	}
	if len(entry.AddrIPv4) > 0 {
		p.AddrV4 = entry.AddrIPv4[0].String()
	}
	if len(entry.AddrIPv6) > 0 {
		p.AddrV6 = entry.AddrIPv6[0].String()
	}
	p.Nickname = nicknameFromTXT(entry.Text)
	if p.Nickname == "" {
		p.Nickname = entry.Instance
	}
	return p
}

func nicknameFromTXT(txt []string) string {
	for _, rec := range txt {
		if n, ok := strings.CutPrefix(rec, "nickname="); ok {
			return n
		}
	}
	return ""
}

// sanitizeInstance keeps zeroconf instance names free of characters that
// would need DNS escaping in the common case of plain nicknames.
func sanitizeInstance(nickname string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, nickname)
}
