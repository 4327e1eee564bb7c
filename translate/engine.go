// Package translate implements the translation side of clokit: a registry
// of translation engines and the batch coordinator that drives classified
// string entries through one of them under bounded concurrency.
//
// Engines are registered explicitly at process start; there is no dynamic
// discovery. The coordinator owns retries, rate limiting, deduplication,
// and the translation memory; engines only turn one text into another.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"
)

// Engine turns a single text into its translation. Implementations are
// fallible and may be called concurrently.
type Engine interface {
	// Name is the registry identifier.
	Name() string
	// Translate translates text from srcLang to dstLang.
	Translate(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

// Func adapts a plain function into an Engine.
type Func struct {
	ID string
	Fn func(ctx context.Context, text, srcLang, dstLang string) (string, error)
}

func (f Func) Name() string { return f.ID }

func (f Func) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	return f.Fn(ctx, text, srcLang, dstLang)
}

// ---------------------------------------------------------------------------
// Engine registry
// ---------------------------------------------------------------------------

var registry = struct {
	mu sync.RWMutex
	m  map[string]Engine
}{m: make(map[string]Engine)}

// Register adds an engine to the registry. Registering the same name twice
// is a programming error.
func Register(e Engine) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, dup := registry.m[e.Name()]; dup {
		return fmt.Errorf("translation engine %q already registered", e.Name())
	}
	registry.m[e.Name()] = e
	return nil
}

// Get looks up an engine by name.
func Get(name string) (Engine, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	e, ok := registry.m[name]
	if !ok {
		return nil, fmt.Errorf("unknown translation engine %q (available: %v)", name, namesLocked())
	}
	return e, nil
}

// Names returns the registered engine names, sorted.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry.m))
	for n := range registry.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Shared HTTP plumbing
// ---------------------------------------------------------------------------

// makeHTTPClient builds a client honoring an explicit proxy URL or the
// HTTP_PROXY/HTTPS_PROXY environment.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
