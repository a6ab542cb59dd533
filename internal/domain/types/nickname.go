package types

import "strings"

// Nickname identifies a peer. Trust Store records are keyed by its
// lowercase form; the wire format carries the form the peer chose.
type Nickname string

// String returns the nickname as typed.
func (n Nickname) String() string { return string(n) }

// Lower returns the Trust-Store lookup key for this nickname.
func (n Nickname) Lower() string { return strings.ToLower(string(n)) }
