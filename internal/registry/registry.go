// SPDX-License-Identifier: MPL-2.0

// Package registry holds the ordered, in-memory collection of script
// definitions and forwards every mutation to a Persister.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/extlaunch/extlaunch/pkg/script"
)

var (
	// ErrRegistry is matched by every error returned from this package.
	ErrRegistry = errors.New("registry error")
	// ErrEmptyName is returned when a script name is blank.
	ErrEmptyName = errors.New("script name must not be empty")
	// ErrDuplicateName is the sentinel error wrapped by DuplicateNameError.
	ErrDuplicateName = errors.New("script name already exists")
	// ErrScriptNotFound is the sentinel error wrapped by ScriptNotFoundError.
	ErrScriptNotFound = errors.New("script not found")
)

type (
	// Persister receives the whole collection after each mutation.
	// Implementations must not block on I/O; the registry lock is held.
	Persister interface {
		Persist(scripts []script.Script)
	}

	// PersistFunc adapts a function to the Persister interface.
	PersistFunc func(scripts []script.Script)

	// Registry is safe for concurrent use.
	Registry struct {
		mu        sync.RWMutex
		scripts   []script.Script
		persister Persister
	}

	// DuplicateNameError is returned by Create when the name is taken.
	DuplicateNameError struct {
		Name script.Name
	}

	// ScriptNotFoundError is returned when no script has the given id or name.
	ScriptNotFoundError struct {
		ID   script.ID
		Name script.Name
	}

	emptyNameError struct{}
)

// Persist calls f(scripts).
func (f PersistFunc) Persist(scripts []script.Script) { f(scripts) }

// New creates an empty registry. A nil persister discards notifications.
func New(p Persister) *Registry {
	if p == nil {
		p = PersistFunc(func([]script.Script) {})
	}
	return &Registry{persister: p}
}

// Load replaces the collection with scripts without notifying the persister.
func (r *Registry) Load(scripts []script.Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = cloneAll(scripts)
}

// Create appends a default-valued script named name and returns it.
func (r *Registry) Create(name script.Name) (script.Script, error) {
	if strings.TrimSpace(string(name)) == "" {
		return script.Script{}, emptyNameError{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexByName(name) >= 0 {
		return script.Script{}, &DuplicateNameError{Name: name}
	}

	s := script.New(name)
	r.scripts = append(r.scripts, s)
	r.notify()
	return s.Clone(), nil
}

// Update replaces the script with the given id, keeping its position.
// The stored copy always carries id, whatever s.ID says. Names are not
// re-checked for uniqueness.
func (r *Registry) Update(id script.ID, s script.Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.scripts, func(e script.Script) bool { return e.ID == id })
	if i < 0 {
		return &ScriptNotFoundError{ID: id}
	}

	updated := s.Clone()
	updated.ID = id
	r.scripts[i] = updated
	r.notify()
	return nil
}

// Remove deletes the script with the given id.
func (r *Registry) Remove(id script.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.scripts, func(e script.Script) bool { return e.ID == id })
	if i < 0 {
		return &ScriptNotFoundError{ID: id}
	}

	r.scripts = slices.Delete(r.scripts, i, i+1)
	r.notify()
	return nil
}

// Get returns a copy of the script with the given id.
func (r *Registry) Get(id script.ID) (script.Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := slices.IndexFunc(r.scripts, func(e script.Script) bool { return e.ID == id })
	if i < 0 {
		return script.Script{}, false
	}
	return r.scripts[i].Clone(), true
}

// FindByName returns a copy of the first script named name.
func (r *Registry) FindByName(name script.Name) (script.Script, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexByName(name)
	if i < 0 {
		return script.Script{}, &ScriptNotFoundError{Name: name}
	}
	return r.scripts[i].Clone(), nil
}

// List returns copies of all scripts in insertion order.
func (r *Registry) List() []script.Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.scripts)
}

// Len returns the number of scripts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}

func (r *Registry) indexByName(name script.Name) int {
	return slices.IndexFunc(r.scripts, func(e script.Script) bool { return e.Name == name })
}

// notify must be called with mu held.
func (r *Registry) notify() {
	r.persister.Persist(cloneAll(r.scripts))
}

func cloneAll(in []script.Script) []script.Script {
	out := make([]script.Script, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func (emptyNameError) Error() string { return ErrEmptyName.Error() }

func (emptyNameError) Is(target error) bool {
	return target == ErrEmptyName || target == ErrRegistry
}

// Error implements the error interface for DuplicateNameError.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("script %q already exists", e.Name)
}

// Is matches ErrDuplicateName and ErrRegistry.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName || target == ErrRegistry
}

// Error implements the error interface for ScriptNotFoundError.
func (e *ScriptNotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("script %q not found", e.Name)
	}
	return fmt.Sprintf("script with id %q not found", e.ID)
}

// Is matches ErrScriptNotFound and ErrRegistry.
func (e *ScriptNotFoundError) Is(target error) bool {
	return target == ErrScriptNotFound || target == ErrRegistry
}
