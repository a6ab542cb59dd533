// Package discovery advertises and browses CipherMesh peers on the local
// network over mDNS/DNS-SD (spec.md §7, P2P deployment shape), using
// github.com/grandcat/zeroconf. A node advertises its nickname and
// listen port under the "_ciphermesh._tcp" service type and browses
// for the same so the P2P controller can dial the peers it finds.
package discovery
