package domain

import (
	"context"
	"time"
)

// Adapter fetches and parses one site's offer for a query. Expected "no
// match" outcomes are returned as an empty ProductResult, not as errors.
type Adapter interface {
	Fetch(ctx context.Context, query string) (*ProductResult, error)
}

// AdapterFunc lets ordinary functions be used as adapters
type AdapterFunc func(ctx context.Context, query string) (*ProductResult, error)

// Fetch calls f(ctx, query)
func (f AdapterFunc) Fetch(ctx context.Context, query string) (*ProductResult, error) {
	return f(ctx, query)
}

// ExecutionMode tells the orchestrator how an adapter must be invoked
type ExecutionMode int

const (
	// ModeAsync adapters honor ctx and manage their own concurrency
	ModeAsync ExecutionMode = iota
	// ModeBlocking adapters hold a shared resource for the whole call and
	// must run under the concurrency limiter
	ModeBlocking
)

func (m ExecutionMode) String() string {
	if m == ModeBlocking {
		return "blocking"
	}
	return "async"
}

// Tier groups sites by how their results reach the client
type Tier int

const (
	// TierImmediate sites are streamed live
	TierImmediate Tier = iota
	// TierBackground sites are fetched in the background and polled later
	TierBackground
)

func (t Tier) String() string {
	if t == TierBackground {
		return "background"
	}
	return "immediate"
}

// Site is a registered adapter together with its invocation policy
type Site struct {
	Name    string
	Tier    Tier
	Mode    ExecutionMode
	Adapter Adapter
	Timeout time.Duration // per attempt
	Retries int           // total attempts
}
