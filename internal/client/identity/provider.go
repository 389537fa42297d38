// Package identity resolves the anonymous principal a device syncs as.
package identity

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// SignInClient signs in to the remote store. An empty principalID asks the
// server for a new principal.
type SignInClient interface {
	SignIn(ctx context.Context, principalID string) (models.Principal, error)
}

// Provider signs in at most once per process. The principal id is kept in
// the metadata table so a device keeps its identity across restarts.
type Provider struct {
	mu        sync.Mutex
	client    SignInClient
	meta      metadata.Repository
	logger    logging.Logger
	principal *models.Principal
}

func NewProvider(client SignInClient, meta metadata.Repository, logger logging.Logger) *Provider {
	return &Provider{client: client, meta: meta, logger: logger.With("module", "identity")}
}

// EnsureSignedIn returns the cached principal or signs in. Concurrent callers
// wait for a single sign-in. Failures are not cached.
func (p *Provider) EnsureSignedIn(ctx context.Context) (models.Principal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.principal != nil {
		return *p.principal, nil
	}

	saved, _, err := p.meta.Get(ctx, metadata.KeyAnonPrincipal)
	if err != nil {
		return models.Principal{}, common.AuthError("load principal", err)
	}

	principal, err := p.client.SignIn(ctx, saved)
	if err != nil {
		return models.Principal{}, common.AuthError("sign in", err)
	}

	if principal.ID != saved {
		if err := p.meta.Set(ctx, metadata.KeyAnonPrincipal, principal.ID); err != nil {
			return models.Principal{}, common.AuthError("save principal", err)
		}
	}

	p.logger.Info(ctx, "Signed in", "principal", principal.ID, "new", saved == "")
	p.principal = &principal
	return principal, nil
}

// Current reports the principal if sign-in has already succeeded.
func (p *Provider) Current() (models.Principal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.principal == nil {
		return models.Principal{}, false
	}
	return *p.principal, true
}
