package config

import (
	"errors"
	"fmt"
	"sort"

	"hookbox/internal/webhook"
)

var (
	ErrUnknownWebhook = errors.New("webhook not configured")
	ErrDuplicateName  = errors.New("duplicate webhook name")
)

// Set holds resolved configs by name. It is filled once at startup and only
// read afterwards, so lookups take no lock.
type Set struct {
	configs map[string]*webhook.Config
}

// NewSet creates a set from configs, rejecting duplicate names.
func NewSet(configs ...*webhook.Config) (*Set, error) {
	s := &Set{configs: make(map[string]*webhook.Config, len(configs))}
	for _, cfg := range configs {
		if _, exists := s.configs[cfg.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, cfg.Name)
		}
		s.configs[cfg.Name] = cfg
	}
	return s, nil
}

// Get retrieves a config by name.
func (s *Set) Get(name string) (*webhook.Config, error) {
	cfg, exists := s.configs[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWebhook, name)
	}
	return cfg, nil
}

// List returns all config names, sorted.
func (s *Set) List() []string {
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of configs.
func (s *Set) Count() int {
	return len(s.configs)
}
