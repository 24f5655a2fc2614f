// File: protocol/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Name-to-factory registry resolved once at startup.

package protocol

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/momentics/hioload-aio/api"
)

var (
	ErrCodecExists = errors.New("codec already registered")
	ErrCodecNil    = errors.New("codec factory is nil")
)

// Factory builds a codec for the given max content length.
type Factory func(maxContent int) api.Protocol

// Registry maps codec names to factories.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Factory
}

var global = DefaultRegistry()

// Register adds a factory to the process-wide registry. Call it from init.
func Register(name string, f Factory) error { return global.Register(name, f) }

// Lookup resolves a codec from the process-wide registry.
func Lookup(name string, maxContent int) (api.Protocol, error) {
	return global.Resolve(name, maxContent)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Factory)}
}

// DefaultRegistry returns a fresh registry holding the built-in codecs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(NameAttachment, func(limit int) api.Protocol { return NewAttachmentCodec(limit) })
	_ = r.Register(NameFixedMagic, func(limit int) api.Protocol { return NewFixedMagicCodec(limit) })
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if f == nil {
		return ErrCodecNil
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("protocol: empty codec name: %w", api.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[key]; ok {
		return fmt.Errorf("protocol: %q: %w", key, ErrCodecExists)
	}
	r.items[key] = f
	return nil
}

// Resolve builds the codec registered under name.
func (r *Registry) Resolve(name string, maxContent int) (api.Protocol, error) {
	r.mu.RLock()
	f, ok := r.items[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("protocol: codec %q: %w", name, api.ErrNotFound)
	}
	return f(maxContent), nil
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.items))
	for k := range r.items {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
