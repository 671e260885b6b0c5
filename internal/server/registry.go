package server

import "github.com/adred-codev/kvcore/internal/client"

// Registry owns the set of live clients; the event loop holds only
// non-owning callback-argument references. Mutated only by the acceptor
// and by FreeClient, both on the single reactor goroutine.
type Registry struct {
	byFD map[int]*client.Client
}

func NewRegistry() *Registry {
	return &Registry{byFD: make(map[int]*client.Client)}
}

func (r *Registry) Add(c *client.Client) {
	r.byFD[c.FD] = c
}

func (r *Registry) Remove(c *client.Client) {
	delete(r.byFD, c.FD)
}

func (r *Registry) Len() int {
	return len(r.byFD)
}

// Snapshot returns the current clients as a slice, safe to iterate even if
// the sweeper frees entries mid-scan.
func (r *Registry) Snapshot() []*client.Client {
	out := make([]*client.Client, 0, len(r.byFD))
	for _, c := range r.byFD {
		out = append(out, c)
	}
	return out
}

// AllInfo returns the introspection string for every client, one per line.
func (r *Registry) AllInfo() string {
	var out string
	for _, c := range r.Snapshot() {
		out += c.Info() + "\n"
	}
	return out
}
