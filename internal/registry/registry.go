// Package registry implements the host-keyed result store that threads data
// between executors and templates: host -> name -> Result, plus a flat
// extra-vars namespace fed by the CLI's -e/--extra-vars option.
//
// Grounded on config.hostInfo's map-of-struct pattern
// (controller_src/controller.go, src/main.go), generalized from
// "host -> endpoint metadata" to "host -> registered result name -> Result",
// with the per-host sub-map guarded the same way main.go guards its shared
// metric counters (a sync.RWMutex around the map).
package registry

import (
	"sync"

	"github.com/evsecdev/orchestrator/internal/model"
)

// Registry is safe for concurrent use. Workers within one executor write
// disjoint host keys, so the lock only needs to protect the rare case of
// two executors racing to create a host's inner map for the first time,
// plus the extra-vars namespace which IS shared across hosts.
type Registry struct {
	mu        sync.RWMutex
	byHost    map[string]map[string]model.Result
	extraVars map[string]string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byHost:    make(map[string]map[string]model.Result),
		extraVars: make(map[string]string),
	}
}

// Set records the result of an executor that declared register=name on the
// given host. Called for SUCCESS/CHANGED/FAIL results whenever register is
// set - SKIPPING results still call Set as long as register was requested.
func (r *Registry) Set(hostRepr, name string, res model.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byHost[hostRepr] == nil {
		r.byHost[hostRepr] = make(map[string]model.Result)
	}
	r.byHost[hostRepr][name] = res
}

// Get looks up a previously-registered result by host and register name.
func (r *Registry) Get(hostRepr, name string) (model.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inner, ok := r.byHost[hostRepr]
	if !ok {
		return model.Result{}, false
	}
	res, ok := inner[name]
	return res, ok
}

// Snapshot returns a shallow copy of one host's registered results, for
// template rendering contexts that want the whole map rather than one name.
func (r *Registry) Snapshot(hostRepr string) map[string]model.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.Result, len(r.byHost[hostRepr]))
	for k, v := range r.byHost[hostRepr] {
		out[k] = v
	}
	return out
}

// SetExtraVar inserts a CLI -e/--extra-vars KEY=VALUE token into the
// top-level namespace shared across every host.
func (r *Registry) SetExtraVar(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extraVars[key] = value
}

// ExtraVar reads back a top-level extra var.
func (r *Registry) ExtraVar(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.extraVars[key]
	return v, ok
}

// ExtraVars returns a shallow copy of the whole top-level namespace, for
// exposing to templates.
func (r *Registry) ExtraVars() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.extraVars))
	for k, v := range r.extraVars {
		out[k] = v
	}
	return out
}
