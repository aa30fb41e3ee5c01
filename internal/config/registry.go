package config

import (
	"sort"
	"sync"

	"hookbox/internal/webhook"
)

// Capability names a kind of pluggable component.
type Capability string

const (
	CapabilityValidator Capability = "signature validator"
	CapabilityProfile   Capability = "webhook profile"
	CapabilityResponse  Capability = "webhook response"
	CapabilityModel     Capability = "webhook model"
	CapabilityJob       Capability = "process webhook job"
)

// Factories build a capability from its options. Their signatures fix the
// capability at registration time, so resolution needs no type checks.
type (
	ValidatorFactory = func(Options) (webhook.SignatureValidator, error)
	ProfileFactory   = func(Options) (webhook.Profile, error)
	ResponseFactory  = func(Options) (webhook.Responder, error)
	ModelFactory     = func(Options) (webhook.RecordFactory, error)
	JobFactory       = func(Options) (webhook.Job, error)
)

// Registry maps implementation names to factories, one namespace per
// capability. Registering a name twice in the same capability replaces it.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]ValidatorFactory
	profiles   map[string]ProfileFactory
	responses  map[string]ResponseFactory
	models     map[string]ModelFactory
	jobs       map[string]JobFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[string]ValidatorFactory),
		profiles:   make(map[string]ProfileFactory),
		responses:  make(map[string]ResponseFactory),
		models:     make(map[string]ModelFactory),
		jobs:       make(map[string]JobFactory),
	}
}

func (r *Registry) RegisterValidator(name string, f ValidatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = f
}

func (r *Registry) RegisterProfile(name string, f ProfileFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[name] = f
}

func (r *Registry) RegisterResponse(name string, f ResponseFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[name] = f
}

func (r *Registry) RegisterModel(name string, f ModelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = f
}

func (r *Registry) RegisterJob(name string, f JobFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[name] = f
}

// Names returns the sorted names registered for a capability.
func (r *Registry) Names(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	switch c {
	case CapabilityValidator:
		names = keys(r.validators)
	case CapabilityProfile:
		names = keys(r.profiles)
	case CapabilityResponse:
		names = keys(r.responses)
	case CapabilityModel:
		names = keys(r.models)
	case CapabilityJob:
		names = keys(r.jobs)
	}
	sort.Strings(names)
	return names
}

// capabilityOf returns the first capability that has name registered.
func (r *Registry) capabilityOf(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case has(r.validators, name):
		return CapabilityValidator, true
	case has(r.profiles, name):
		return CapabilityProfile, true
	case has(r.responses, name):
		return CapabilityResponse, true
	case has(r.models, name):
		return CapabilityModel, true
	case has(r.jobs, name):
		return CapabilityJob, true
	}
	return "", false
}

func (r *Registry) validator(name string) (ValidatorFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.validators[name]
	return f, ok
}

func (r *Registry) profile(name string) (ProfileFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.profiles[name]
	return f, ok
}

func (r *Registry) response(name string) (ResponseFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.responses[name]
	return f, ok
}

func (r *Registry) model(name string) (ModelFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.models[name]
	return f, ok
}

func (r *Registry) job(name string) (JobFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.jobs[name]
	return f, ok
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func has[V any](m map[string]V, name string) bool {
	_, ok := m[name]
	return ok
}
