// Package collab tracks the external collaborators this service depends
// on (database, cache, AI endpoint) and exposes their health for the
// readiness probe.
package collab

import (
	"context"
)

// Provider is one external collaborator the service talks to
type Provider interface {
	// Type returns the collaborator type name
	Type() string

	// HealthCheck checks if the collaborator is reachable
	HealthCheck(ctx context.Context) error

	// Close releases the underlying connection
	Close() error
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	providerType string
}

// Type returns the collaborator type
func (p *BaseProvider) Type() string {
	return p.providerType
}
