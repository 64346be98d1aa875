// Package registry maps service identifiers to their credential configuration.
//
// A Registry is constructed explicitly and passed to the commands that need
// it. Built-in services come from Defaults; keysync.yaml entries and the
// generator add more through Register and Merge.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	dserrors "github.com/systmms/keysync/internal/errors"
	"github.com/systmms/keysync/pkg/credential"
)

// TemplateID is the authoring template entry. It resolves like any other
// service but is left out of listings.
const TemplateID = "template"

// Registry holds service configurations keyed by service id
type Registry struct {
	mu       sync.RWMutex
	services map[string]credential.ServiceConfig
}

// New creates a registry holding the given services. It fails on the same
// conditions as Register.
func New(services map[string]credential.ServiceConfig) (*Registry, error) {
	r := &Registry{services: make(map[string]credential.ServiceConfig, len(services))}

	ids := make([]string, 0, len(services))
	for id := range services {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := r.Register(id, services[id]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefault creates a registry holding the built-in services
func NewDefault() *Registry {
	r, err := New(Defaults())
	if err != nil {
		panic(fmt.Sprintf("registry: invalid built-in services: %v", err))
	}
	return r
}

// Register adds a new service. The id must be unused, the config valid, and
// its item title not used by any other entry.
func (r *Registry) Register(id string, cfg credential.ServiceConfig) error {
	if id == "" {
		return dserrors.ConfigError{Field: "service", Message: "service id cannot be empty"}
	}
	if err := cfg.Validate(); err != nil {
		return dserrors.ConfigError{Field: "services." + id, Message: err.Error()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[id]; exists {
		return dserrors.ConfigError{
			Field:      "service",
			Value:      id,
			Message:    fmt.Sprintf("service '%s' is already registered", id),
			Suggestion: "Pick a different service id",
		}
	}
	if other := r.titleOwner(cfg.ItemTitle, id); other != "" {
		return duplicateTitle(id, other, cfg.ItemTitle)
	}

	r.services[id] = cfg
	return nil
}

// Merge applies services on top of the registry. Entries with a known id
// replace the existing configuration; new ids are added. Item titles must
// stay unique across the result, otherwise nothing is changed.
func (r *Registry) Merge(services map[string]credential.ServiceConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := make(map[string]credential.ServiceConfig, len(r.services)+len(services))
	for id, cfg := range r.services {
		merged[id] = cfg
	}
	for id, cfg := range services {
		if err := cfg.Validate(); err != nil {
			return dserrors.ConfigError{Field: "services." + id, Message: err.Error()}
		}
		merged[id] = cfg
	}

	// Kept entries claim their titles first so a clash names the incoming id.
	owners := make(map[string]string, len(merged))
	for _, id := range sortedIDs(r.services) {
		if _, replaced := services[id]; !replaced {
			owners[r.services[id].ItemTitle] = id
		}
	}
	for _, id := range sortedIDs(services) {
		title := services[id].ItemTitle
		if other, taken := owners[title]; taken {
			return duplicateTitle(id, other, title)
		}
		owners[title] = id
	}

	r.services = merged
	return nil
}

// Get resolves a service id
func (r *Registry) Get(id string) (credential.ServiceConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.services[id]
	if !ok {
		return credential.ServiceConfig{}, dserrors.ConfigError{
			Message:    fmt.Sprintf("Unknown service '%s'. Available: %s", id, strings.Join(sortedIDs(r.services), ", ")),
			Suggestion: "Run 'keysync update --list' to see configured services",
		}
	}
	return cfg, nil
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[id]
	return ok
}

// List returns the selectable service ids in sorted order, without the
// template entry.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.services))
	for _, id := range sortedIDs(r.services) {
		if id != TemplateID {
			ids = append(ids, id)
		}
	}
	return ids
}

// titleOwner returns the id already using title, ignoring skip.
func (r *Registry) titleOwner(title, skip string) string {
	for id, cfg := range r.services {
		if id != skip && cfg.ItemTitle == title {
			return id
		}
	}
	return ""
}

func sortedIDs(services map[string]credential.ServiceConfig) []string {
	ids := make([]string, 0, len(services))
	for id := range services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func duplicateTitle(id, other, title string) error {
	return dserrors.ConfigError{
		Field:      "services." + id + ".onepassword_item_title",
		Value:      title,
		Message:    fmt.Sprintf("item title is already used by service '%s'", other),
		Suggestion: "Each service must write to its own 1Password item",
	}
}
