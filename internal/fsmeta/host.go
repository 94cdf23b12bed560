package fsmeta

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// HostAddress is a network endpoint of a datanode. Two addresses are the
// same host iff host and port are equal; the value is usable as a map key.
type HostAddress struct {
	Host string
	Port int
}

func (a HostAddress) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// ParseHostPort converts a "host:port" endpoint, as reported in a block
// location's name list, into a HostAddress.
func ParseHostPort(s string) (HostAddress, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return HostAddress{}, errors.Errorf("malformed endpoint %q", s)
	}
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return HostAddress{}, errors.Wrapf(err, "malformed port in endpoint %q", s)
	}
	return HostAddress{Host: s[:idx], Port: port}, nil
}

// Host is one entry of a HostIndex: the endpoint plus the display name the
// filesystem reported for it. The display name is informational only and
// never takes part in equality.
type Host struct {
	Address     HostAddress `json:"address"`
	DisplayName string      `json:"display_name,omitempty"`
}

// HostIndex assigns a stable small integer to every distinct HostAddress it
// sees. Indices follow insertion order and are never reused or reassigned
// for the lifetime of the index. One instance is shared by all concurrent
// partition loads of a table so that replica host ids stay consistent
// table-wide.
type HostIndex struct {
	mu    sync.RWMutex
	byKey map[HostAddress]int
	hosts []Host
}

func NewHostIndex() *HostIndex {
	return &HostIndex{byKey: make(map[HostAddress]int)}
}

// GetOrAssign returns the index of addr, assigning the next free one if the
// address is new. Safe for concurrent callers: the first writer wins and
// every later call observes the same index. displayName is recorded on
// first assignment only.
func (hi *HostIndex) GetOrAssign(addr HostAddress, displayName string) int {
	hi.mu.RLock()
	idx, ok := hi.byKey[addr]
	hi.mu.RUnlock()
	if ok {
		return idx
	}

	hi.mu.Lock()
	defer hi.mu.Unlock()
	if idx, ok := hi.byKey[addr]; ok {
		return idx
	}
	idx = len(hi.hosts)
	hi.byKey[addr] = idx
	hi.hosts = append(hi.hosts, Host{Address: addr, DisplayName: displayName})
	return idx
}

// Lookup returns the index of addr without assigning one.
func (hi *HostIndex) Lookup(addr HostAddress) (int, bool) {
	hi.mu.RLock()
	defer hi.mu.RUnlock()
	idx, ok := hi.byKey[addr]
	return idx, ok
}

// Len returns the number of distinct addresses seen so far.
func (hi *HostIndex) Len() int {
	hi.mu.RLock()
	defer hi.mu.RUnlock()
	return len(hi.hosts)
}

// Hosts returns a copy of the entries in index order, for the catalog to
// serialize alongside the descriptors that reference them.
func (hi *HostIndex) Hosts() []Host {
	hi.mu.RLock()
	defer hi.mu.RUnlock()
	out := make([]Host, len(hi.hosts))
	copy(out, hi.hosts)
	return out
}
