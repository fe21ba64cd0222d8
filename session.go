package singlefile

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/porticus-lab/go-singlefile/backend"
)

// Session captures pages with one browser.
//
// Starting a browser is expensive and a capture is cheap, so a Session keeps
// its browser for any number of [Session.Capture] calls until
// [Session.Close]. Captures may run concurrently; each bundled backend uses a
// separate tab or browser context per capture. Close waits for running
// captures to return before it releases the browser.
type Session struct {
	cfg     sessionConfig
	opts    Options
	backend backend.Backend
	browser backend.Browser

	mu     sync.RWMutex
	closed bool
}

// Initialize resolves overrides against [DefaultOptions], selects the
// backend named by the backEnd option and starts its browser. ctx bounds the
// startup only. The caller must call [Session.Close] when finished.
func Initialize(ctx context.Context, overrides Options, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}

	resolved := Resolve(overrides)
	b, err := cfg.registry.Select(resolved, cfg.logger)
	if err != nil {
		return nil, err
	}

	cfg.logger.WithField("backend", resolved.String(backend.KeyBackEnd)).Debug("starting browser")
	h, err := b.Initialize(ctx, resolved.Clone())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowserInit, err)
	}

	return &Session{
		cfg:     cfg,
		opts:    resolved,
		backend: b,
		browser: h,
	}, nil
}

// Options returns a copy of the resolved options of the session.
func (s *Session) Options() Options {
	return s.opts.Clone()
}

// Capture loads url and returns it as a self-contained document. Each call
// works on its own copy of the session options.
func (s *Session) Capture(ctx context.Context, url string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrSessionClosed
	}

	taskOpts := s.opts.Clone()
	taskOpts[backend.KeyURL] = url
	logger := s.cfg.logger.WithField("url", url)
	logger.Debug("ready to capture url")

	pd, err := s.backend.GetPageData(ctx, s.browser, taskOpts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCapture, err)
	}
	if pd == nil {
		return "", fmt.Errorf("%w: %s: backend returned no page data", ErrCapture, url)
	}
	logger.WithField("bytes", len(pd.Content)).Info("capture ok")

	if taskOpts.Bool(backend.KeyIncludeInfobar) {
		if err := injectInfobar(ctx, s.cfg.scripts, pd); err != nil {
			return "", err
		}
	}
	if taskOpts.Bool(backend.KeyDumpContent) {
		if _, err := fmt.Fprintln(s.cfg.dump, pd.Content); err != nil {
			logger.WithError(err).Warn("dumping content failed")
		}
	}
	return pd.Content, nil
}

// CaptureFile captures a local HTML file through its file:// URL.
func (s *Session) CaptureFile(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving path: %w", ErrCapture, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCapture, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return s.Capture(ctx, u.String())
}

// Close releases the browser. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.backend.CloseBrowser(s.browser); err != nil {
		return fmt.Errorf("singlefile: closing browser: %w", err)
	}
	return nil
}

// Capture captures url with a temporary [Session]. For more than one page,
// use [Initialize] to reuse the browser.
func Capture(ctx context.Context, url string, overrides Options, opts ...Option) (string, error) {
	s, err := Initialize(ctx, overrides, opts...)
	if err != nil {
		return "", err
	}
	defer s.Close()
	return s.Capture(ctx, url)
}
