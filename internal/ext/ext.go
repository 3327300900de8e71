// Package ext defines the extension interface and registry for the bot.
// Every feature module implements Extension and is loaded into the host at
// startup; adding a feature only requires implementing the interface.
package ext

import (
	"fmt"
	"sort"
	"sync"

	tele "gopkg.in/telebot.v3"
)

// Extension is one self-contained feature module. Setup is called once,
// after middleware registration, and binds the extension's handlers onto
// the bot.
type Extension interface {
	// Name returns the extension's unique name (e.g., "mafia", "gets").
	Name() string

	// Setup binds the extension's command handlers onto the bot.
	Setup(b *tele.Bot) error
}

// Registry manages extension registration and lookup.
// It provides a thread-safe way to register and retrieve extensions.
type Registry struct {
	exts map[string]Extension
	mu   sync.RWMutex
}

// NewRegistry creates a new extension registry.
func NewRegistry() *Registry {
	return &Registry{
		exts: make(map[string]Extension),
	}
}

// Register adds an extension to the registry.
// If an extension with the same name already exists, it will be replaced.
func (r *Registry) Register(e Extension) error {
	if e == nil {
		return fmt.Errorf("cannot register nil extension")
	}
	if e.Name() == "" {
		return fmt.Errorf("extension name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.exts[e.Name()] = e
	return nil
}

// Get retrieves an extension by name.
// Returns the extension and true if found, nil and false otherwise.
func (r *Registry) Get(name string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exts[name]
	return e, ok
}

// List returns all registered extensions in name order.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]Extension, 0, len(r.exts))
	for _, e := range r.exts {
		exts = append(exts, e)
	}
	sort.Slice(exts, func(i, j int) bool { return exts[i].Name() < exts[j].Name() })
	return exts
}

// Names returns all registered extension names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.exts))
	for name := range r.exts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered extensions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exts)
}

// SetupAll runs Setup for every registered extension, in name order.
func (r *Registry) SetupAll(b *tele.Bot) error {
	for _, e := range r.List() {
		if err := e.Setup(b); err != nil {
			return fmt.Errorf("setting up extension %q: %w", e.Name(), err)
		}
	}
	return nil
}
