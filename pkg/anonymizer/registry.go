package anonymizer

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/config"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/ner"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/profile"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/recognizer"
)

// Registry is an ordered, immutable set of recognizers sharing one model
// handle. Order is the final tie-breaker of conflict resolution, and the
// grantlist registers first so protected matches win ties against equally
// scored detections.
type Registry struct {
	recognizers []recognizer.Recognizer
	model       ner.Model
}

// Recognizers returns the registry's recognizers in registration order.
// Callers must not modify the slice.
func (r *Registry) Recognizers() []recognizer.Recognizer { return r.recognizers }

// Model returns the shared model handle, never nil.
func (r *Registry) Model() ner.Model { return r.model }

// Builder builds registries on demand and caches them per profile.
// Profiles without configuration of their own share the default registry;
// concurrent requests for the same profile build it once. Configuration
// changes invalidate affected registries through the cache's change hook.
type Builder struct {
	provider *config.Provider
	model    ner.Model
	settings Settings
	logger   *slog.Logger

	group singleflight.Group

	mu         sync.RWMutex
	registries map[string]*Registry // "" is the default
}

// NewBuilder wires a Builder to the configuration provider and registers
// its invalidation hook. A nil model disables model-backed recognition.
func NewBuilder(provider *config.Provider, model ner.Model, settings Settings, logger *slog.Logger) *Builder {
	if model == nil {
		model = ner.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		provider:   provider,
		model:      model,
		settings:   settings,
		logger:     logger,
		registries: make(map[string]*Registry),
	}
	provider.Cache().SetChangeHook(b.Invalidate)
	return b
}

// Default returns the default registry, building it on first use.
func (b *Builder) Default() *Registry {
	reg, err := b.get("")
	if err != nil {
		// The default scope has no failure modes left after fail-open
		// config loading; keep the call sites simple regardless.
		b.logger.Error("Default registry build failed", "error", err)
		return &Registry{model: b.model}
	}
	return reg
}

// ForProfile returns the registry for the named profile. The name is
// validated; an invalid name is the only error.
func (b *Builder) ForProfile(name string) (*Registry, error) {
	if name == "" {
		return b.Default(), nil
	}
	canonical, err := profile.Validate(name)
	if err != nil {
		return nil, err
	}
	return b.get(canonical)
}

// Invalidate drops the cached registry of a profile. The empty name
// invalidates everything: profiles without configuration alias the
// default registry, so a default-scope change must not leave them stale.
func (b *Builder) Invalidate(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		clear(b.registries)
		return
	}
	delete(b.registries, name)
}

// Reset drops every cached registry.
func (b *Builder) Reset() {
	b.mu.Lock()
	clear(b.registries)
	b.mu.Unlock()
}

// CachedRegistries reports how many registries are currently cached,
// counting profile aliases of the default registry.
func (b *Builder) CachedRegistries() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.registries)
}

func (b *Builder) get(name string) (*Registry, error) {
	b.mu.RLock()
	reg, ok := b.registries[name]
	b.mu.RUnlock()
	if ok {
		return reg, nil
	}

	v, err, _ := b.group.Do(name, func() (any, error) {
		b.mu.RLock()
		reg, ok := b.registries[name]
		b.mu.RUnlock()
		if ok {
			return reg, nil
		}
		reg, err := b.build(name)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.registries[name] = reg
		b.mu.Unlock()
		return reg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Registry), nil
}

func (b *Builder) build(name string) (*Registry, error) {
	if name != "" {
		has, err := b.provider.HasProfileConfig(name)
		if err != nil {
			return nil, err
		}
		if !has {
			return b.get("")
		}
		b.logger.Info("Building profile registry", "profile", name)
	}

	var recs []recognizer.Recognizer
	add := func(r recognizer.Recognizer) { recs = append(recs, r) }

	if b.settings.enabled(RecognizerGrantlist) {
		grant, err := b.provider.Grantlist(name)
		if err != nil {
			return nil, err
		}
		if len(grant) > 0 {
			add(recognizer.NewList(recognizer.ListConfig{
				Name:      RecognizerGrantlist,
				Language:  "fi",
				Label:     recognizer.LabelGrantlisted,
				Phrases:   grant,
				Threshold: b.settings.ListThreshold,
			}))
		}
	}
	if b.settings.enabled(RecognizerBlocklist) {
		block, err := b.provider.Blocklist(name)
		if err != nil {
			return nil, err
		}
		if len(block) > 0 {
			add(recognizer.NewList(recognizer.ListConfig{
				Name:      RecognizerBlocklist,
				Language:  "fi",
				Label:     recognizer.LabelOther,
				Phrases:   block,
				Threshold: b.settings.ListThreshold,
			}))
		}
	}

	if b.settings.enabled(RecognizerEmail) {
		add(recognizer.NewEmail("fi"))
	}
	if b.settings.enabled(RecognizerPhone) {
		add(recognizer.NewPhone("fi"))
	}
	if b.settings.enabled(RecognizerSSN) {
		add(recognizer.NewSSN("fi"))
	}
	if b.settings.enabled(RecognizerFilename) {
		add(recognizer.NewFilename("fi"))
	}
	if b.settings.enabled(RecognizerIP) {
		add(recognizer.NewIP("fi"))
	}
	if b.settings.enabled(RecognizerIBAN) {
		add(recognizer.NewIBAN("fi"))
	}
	if b.settings.enabled(RecognizerRegistrationPlate) {
		add(recognizer.NewRegistrationPlate("fi"))
	}
	if b.settings.enabled(RecognizerProperty) {
		add(recognizer.NewProperty("fi"))
	}
	if b.settings.enabled(RecognizerAddress) {
		add(recognizer.NewAddress("fi"))
	}

	patterns, err := b.provider.RegexPatterns(name)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(patterns))
	for label := range patterns {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		specs := make([]recognizer.RuleSpec, 0, len(patterns[label]))
		for _, p := range patterns[label] {
			specs = append(specs, recognizer.RuleSpec{Name: p.Name, Pattern: p.Pattern, Score: p.Score})
		}
		rules := recognizer.CompileRules(b.logger, specs)
		if len(rules) == 0 {
			continue
		}
		add(recognizer.NewPattern(fmt.Sprintf("custom_%s", strings.ToLower(label)), "fi", label, rules))
	}

	if b.settings.enabled(RecognizerModelFI) {
		add(recognizer.NewModelFI())
	}
	if b.settings.enabled(RecognizerModelEN) {
		add(recognizer.NewModelEN())
	}
	if b.settings.enabled(RecognizerAddressToken) {
		add(recognizer.NewAddressTokenPattern("fi"))
	}

	return &Registry{recognizers: recs, model: b.model}, nil
}
