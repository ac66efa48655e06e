// Package pool manages a small fixed set of reusable HTTP session handles.
//
// Reusing sessions keeps TLS handshakes and TCP connections warm across
// requests. Handles are shared, not leased: Acquire returns a random member
// of the pool and never removes it. The pool size is constant between New
// and CloseAll.
package pool

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// DefaultSize is the number of handles created when no size is given.
const DefaultSize = 3

// Handle is a reusable HTTP session backed by its own keep-alive transport.
type Handle struct {
	Client    *http.Client
	transport *http.Transport
}

// Pool holds a fixed set of reusable connection handles.
//
// Acquire is not synchronized: the pagination loop is strictly sequential.
// Handles must not be shared across overlapping logical requests.
type Pool struct {
	handles []*Handle
}

// New creates a pool of size independent connection handles.
// A size <= 0 falls back to DefaultSize.
func New(size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if size > 64 {
		return nil, fmt.Errorf("pool size %d too large (max 64)", size)
	}

	handles := make([]*Handle, size)
	for i := range handles {
		transport := &http.Transport{
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		}
		handles[i] = &Handle{
			Client:    &http.Client{Transport: transport},
			transport: transport,
		}
	}

	return &Pool{handles: handles}, nil
}

// Acquire returns one handle chosen uniformly at random.
// The handle remains in the pool; there is no lease or health check.
func (p *Pool) Acquire() *Handle {
	return p.handles[rand.Intn(len(p.handles))]
}

// Size returns the fixed number of handles in the pool.
func (p *Pool) Size() int {
	return len(p.handles)
}

// CloseAll tears down every handle's idle connections.
// Call exactly once, at the end of an extraction run.
func (p *Pool) CloseAll() {
	for _, h := range p.handles {
		h.transport.CloseIdleConnections()
	}
}
