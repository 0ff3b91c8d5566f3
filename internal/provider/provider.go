package provider

import (
	"context"
	"fmt"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

// ProvisionRequest carries what a provider needs to mint per-app
// sending credentials.
type ProvisionRequest struct {
	AppID   string
	OwnerID string
}

// Message is one outbound email, fully resolved. Tag is the platform's
// correlation id, threaded through a provider-specific header so that
// delivery webhooks can find their way back to the log entry.
type Message struct {
	FromEmail string
	To        string
	Subject   string
	HTML      string
	Tag       string
}

// EmailProvider is the capability every supported provider implements:
// obtain per-app SMTP credentials from the provider's management API,
// and push one message through those credentials.
type EmailProvider interface {
	Name() domain.ProviderType
	Provision(ctx context.Context, req ProvisionRequest) (domain.Credentials, error)
	Send(ctx context.Context, creds domain.Credentials, msg Message) error
}

// Registry holds the closed set of configured providers. Adding a
// provider means adding a variant here, not branching on strings
// elsewhere.
type Registry struct {
	providers map[domain.ProviderType]EmailProvider
}

func NewRegistry(providers ...EmailProvider) *Registry {
	r := &Registry{providers: make(map[domain.ProviderType]EmailProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name domain.ProviderType) (EmailProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	return p, nil
}
