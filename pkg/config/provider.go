package config

import (
	"github.com/City-of-Helsinki/text-anonymizer/pkg/profile"
)

// Provider exposes the cached configuration per profile, validating
// untrusted profile names at the boundary. An empty name selects the
// default scope; an invalid name is an error the caller decides how to
// handle. The registry layer falls back to the default scope, command
// surfaces report it.
type Provider struct {
	cache *Cache
}

// NewProvider wraps cache.
func NewProvider(cache *Cache) *Provider {
	return &Provider{cache: cache}
}

// Cache returns the underlying cache.
func (p *Provider) Cache() *Cache { return p.cache }

// Blocklist returns the deny-list phrases for the named profile.
func (p *Provider) Blocklist(name string) ([]string, error) {
	scope, err := p.scope(name)
	if err != nil {
		return nil, err
	}
	return p.cache.Blocklist(scope), nil
}

// Grantlist returns the allow-list phrases for the named profile.
func (p *Provider) Grantlist(name string) ([]string, error) {
	scope, err := p.scope(name)
	if err != nil {
		return nil, err
	}
	return p.cache.Grantlist(scope), nil
}

// RegexPatterns returns the custom pattern groups for the named profile.
func (p *Provider) RegexPatterns(name string) (map[string][]PatternSpec, error) {
	scope, err := p.scope(name)
	if err != nil {
		return nil, err
	}
	return p.cache.RegexPatterns(scope), nil
}

// HasProfileConfig reports whether the named profile has any configuration
// file on disk.
func (p *Provider) HasProfileConfig(name string) (bool, error) {
	scope, err := p.scope(name)
	if err != nil {
		return false, err
	}
	if scope == "" {
		return false, nil
	}
	return p.cache.HasConfig(scope), nil
}

// Profiles lists the profile directories under the configuration root.
func (p *Provider) Profiles() ([]string, error) {
	return profile.ListProfiles(p.cache.Root())
}

func (p *Provider) scope(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	return profile.Validate(name)
}
