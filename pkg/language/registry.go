// Package language holds the set of language codes the speech backend accepts.
package language

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// Provider supplies the languages a speech backend supports, code -> display name.
type Provider interface {
	Languages(ctx context.Context) (map[string]string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (map[string]string, error)

// Languages implements Provider.
func (f ProviderFunc) Languages(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// Registry is an immutable code -> name mapping. Codes are stored lower-case,
// matching the lower-casing callers apply to user input.
type Registry struct {
	names map[string]string
	codes []string
}

// NewRegistry copies langs into a Registry.
func NewRegistry(langs map[string]string) *Registry {
	r := &Registry{names: make(map[string]string, len(langs))}
	for code, name := range langs {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		r.names[code] = name
	}
	r.codes = make([]string, 0, len(r.names))
	for code := range r.names {
		r.codes = append(r.codes, code)
	}
	sort.Strings(r.codes)
	return r
}

// Fallback returns the built-in minimal registry used when no provider can
// be consulted.
func Fallback() *Registry {
	return NewRegistry(map[string]string{
		"en": "English",
		"de": "German",
		"ru": "Russian",
	})
}

// Load asks p for its languages once. A nil provider, an error, or an empty
// answer yields the Fallback registry; fellBack reports which one was used.
func Load(ctx context.Context, p Provider) (reg *Registry, fellBack bool) {
	if p == nil {
		return Fallback(), true
	}
	langs, err := p.Languages(ctx)
	if err != nil {
		slog.Warn("Language registry unavailable, using built-in set", "error", err)
		return Fallback(), true
	}
	if len(langs) == 0 {
		slog.Warn("Language registry returned no languages, using built-in set")
		return Fallback(), true
	}
	return NewRegistry(langs), false
}

// Has reports whether code is supported.
func (r *Registry) Has(code string) bool {
	_, ok := r.names[code]
	return ok
}

// Name returns the display name of code, or "" when unsupported.
func (r *Registry) Name(code string) string {
	return r.names[code]
}

// Codes returns all supported codes, sorted. The slice is a copy.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Len returns the number of supported languages.
func (r *Registry) Len() int {
	return len(r.codes)
}

