package workspace

import (
	"sync"

	"github.com/panekit/panekit/pkg/models"
)

// Provider serves the active policy's permissions and restrictions to
// the layout engine. Replace swaps the whole policy atomically, so a
// validation pass sees either the old policy or the new one, never a
// mix.
type Provider struct {
	mu           sync.RWMutex
	policy       *Policy
	permissions  map[string]struct{}
	restrictions models.ModeSet
}

// NewProvider wraps a policy; nil means the default policy.
func NewProvider(policy *Policy) *Provider {
	p := &Provider{}
	if policy == nil {
		policy = DefaultPolicy()
	}
	p.Replace(policy)
	return p
}

// HasPermission reports whether the workspace grants a permission.
func (p *Provider) HasPermission(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.permissions[name]
	return ok
}

// LayoutRestrictions returns the workspace's allowed-mode set, empty
// when unrestricted. The returned set is replaced, never mutated, on
// reload; callers may read it without copying.
func (p *Provider) LayoutRestrictions() models.ModeSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.restrictions
}

// Replace installs a new policy. Nil is ignored.
func (p *Provider) Replace(policy *Policy) {
	if policy == nil {
		return
	}
	permissions := policy.PermissionSet()
	restrictions := policy.Restrictions()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.policy = policy
	p.permissions = permissions
	p.restrictions = restrictions
}

// Policy returns the currently installed policy.
func (p *Provider) Policy() *Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.policy
}
