// Package operation is the string-keyed registry of text transforms the
// pipeline can apply. Operations are pure string functions; the registry
// chains them in the caller's requested order.
package operation

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/textpipe/errors"
)

// Built-in operation names.
const (
	FixLayout           = "fix_layout"
	CleanText           = "clean_text"
	NormalizeWhitespace = "normalize_whitespace"
	DetectLanguage      = "detect_language"
)

// Handler transforms text. A handler must not retain or mutate shared state;
// it receives the output of the previous operation in the chain.
type Handler func(ctx context.Context, text string) (string, error)

// Registry maps operation names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates a Registry preloaded with the built-in operations.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.mustRegister(FixLayout, func(_ context.Context, text string) (string, error) {
		return fixLayout(text), nil
	})
	r.mustRegister(CleanText, func(_ context.Context, text string) (string, error) {
		return cleanText(text), nil
	})
	r.mustRegister(NormalizeWhitespace, func(_ context.Context, text string) (string, error) {
		return normalizeWhitespace(text), nil
	})
	// Annotating no-op: the text passes through untouched so the chain can
	// continue; callers read the label out of band via LanguageOf.
	r.mustRegister(DetectLanguage, func(_ context.Context, text string) (string, error) {
		return text, nil
	})
	return r
}

// Register adds a handler under name, rejecting duplicates and nil handlers.
func (r *Registry) Register(name string, handler Handler) error {
	if name == "" || handler == nil {
		return errors.WrapInvalid(fmt.Errorf("name and handler are required"),
			"operation", "register", "register handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return errors.WrapInvalid(fmt.Errorf("operation %q already registered", name),
			"operation", "register", "register handler")
	}
	r.handlers[name] = handler
	return nil
}

func (r *Registry) mustRegister(name string, handler Handler) {
	if err := r.Register(name, handler); err != nil {
		panic(err)
	}
}

// Names returns the registered operation names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Apply runs the named operations in order, each receiving the previous
// output. An unknown name fails the whole request before any handler runs.
// A handler error degrades that slot: the chain continues with its input
// text, and the failed operation is omitted from the applied list.
func (r *Registry) Apply(ctx context.Context, text string, names []string) (string, []string, error) {
	r.mu.RLock()
	handlers := make([]Handler, len(names))
	for i, name := range names {
		h, ok := r.handlers[name]
		if !ok {
			r.mu.RUnlock()
			return "", nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrUnknownOperation, name),
				"operation", "apply", "resolve operation")
		}
		handlers[i] = h
	}
	r.mu.RUnlock()

	applied := make([]string, 0, len(names))
	current := text
	for i, h := range handlers {
		if err := ctx.Err(); err != nil {
			return "", nil, errors.Wrap(err, "operation", "apply", "apply operation")
		}
		out, err := h(ctx, current)
		if err != nil {
			// One bad transform never kills the chain.
			continue
		}
		current = out
		applied = append(applied, names[i])
	}
	return current, applied, nil
}
