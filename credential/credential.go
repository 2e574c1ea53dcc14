// Package credential supplies per-agent secrets to tool invocations at
// execution time. Secrets are resolved lazily, handed to the tool context for
// the duration of one call and never written to logs or events.
package credential

import (
	"context"
	"errors"
	"sync"
)

// ErrAbsent is returned when no credential is configured for an agent.
// Callers that can operate unauthenticated should treat it as a soft miss.
var ErrAbsent = errors.New("no credential configured")

// Provider resolves the secret bound to an agent definition id.
type Provider interface {
	// Resolve returns the decrypted secret for agentID, or an error wrapping
	// ErrAbsent when none is configured.
	Resolve(ctx context.Context, agentID string) (string, error)
}

// StaticProvider is a thread-safe in-memory Provider for tests and embedded
// deployments.
type StaticProvider struct {
	mu    sync.RWMutex
	creds map[string]string
}

// NewStaticProvider creates a provider from an initial secret map.
func NewStaticProvider(creds map[string]string) *StaticProvider {
	p := &StaticProvider{creds: map[string]string{}}
	for k, v := range creds {
		p.creds[k] = v
	}
	return p
}

// Set stores or replaces the secret for agentID.
func (p *StaticProvider) Set(agentID, secret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds[agentID] = secret
}

// Resolve implements Provider.
func (p *StaticProvider) Resolve(_ context.Context, agentID string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	secret, ok := p.creds[agentID]
	if !ok {
		return "", ErrAbsent
	}
	return secret, nil
}
