package singlefile

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/porticus-lab/go-singlefile/backend"
	"github.com/porticus-lab/go-singlefile/internal/backend/devtools"
	"github.com/porticus-lab/go-singlefile/internal/backend/gorod"
	"github.com/porticus-lab/go-singlefile/internal/backend/pw"
)

// Registry maps backend names, as given in the backEnd option, to the
// factories that build them. A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]backend.Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]backend.Factory)}
}

// DefaultRegistry returns a new Registry holding the bundled backends:
//
//	chromedp             Chromium over the DevTools protocol (chromedp)
//	puppeteer            same as chromedp, for configurations written for SingleFile
//	rod                  Chromium through go-rod
//	playwright-chromium  Chromium through Playwright
//	playwright-firefox   Firefox through Playwright
//	playwright-webkit    WebKit through Playwright
//
// jsdom, webdriver-chromium and webdriver-gecko are known but disabled.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	devtoolsFactory := func(l logrus.FieldLogger) (backend.Backend, error) {
		return devtools.New(l), nil
	}
	r.Register("chromedp", devtoolsFactory)
	r.Register("puppeteer", devtoolsFactory)
	r.Register("rod", func(l logrus.FieldLogger) (backend.Backend, error) {
		return gorod.New(l), nil
	})
	for _, engine := range []string{pw.Chromium, pw.Firefox, pw.WebKit} {
		r.Register("playwright-"+engine, func(l logrus.FieldLogger) (backend.Backend, error) {
			return pw.New(engine, l)
		})
	}
	r.Disable("jsdom")
	r.Disable("webdriver-chromium")
	r.Disable("webdriver-gecko")
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f backend.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Disable keeps name known but makes selecting it fail as if it had never
// been registered.
func (r *Registry) Disable(name string) {
	r.Register(name, nil)
}

// Names returns the enabled backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name, f := range r.factories {
		if f != nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Select builds the backend named by the backEnd option. It never starts a
// browser.
func (r *Registry) Select(opts Options, logger logrus.FieldLogger) (backend.Backend, error) {
	name := opts.String(backend.KeyBackEnd)
	r.mu.RLock()
	f := r.factories[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}

	b, err := f(logger)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrModuleLoad, name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w %q: factory returned no backend", ErrModuleLoad, name)
	}
	return b, nil
}
