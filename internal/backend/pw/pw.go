// Package pw captures pages with Chromium, Firefox or WebKit driven by
// Playwright.
package pw

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/porticus-lab/go-singlefile/backend"
	"github.com/porticus-lab/go-singlefile/internal/launch"
	"github.com/porticus-lab/go-singlefile/internal/pageproc"
	"github.com/porticus-lab/go-singlefile/internal/scripts"
)

// Browser engines understood by [New].
const (
	Chromium = "chromium"
	Firefox  = "firefox"
	WebKit   = "webkit"
)

// Backend implements [backend.Backend]. Each capture runs in its own
// browser context.
type Backend struct {
	engine string
	logger logrus.FieldLogger
}

// New returns a Playwright backend for engine.
func New(engine string, logger logrus.FieldLogger) (*Backend, error) {
	switch engine {
	case Chromium, Firefox, WebKit:
	default:
		return nil, fmt.Errorf("pw: unsupported browser engine %q", engine)
	}
	return &Backend{engine: engine, logger: logger.WithField("backend", "playwright-"+engine)}, nil
}

type browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Initialize starts the Playwright driver and launches the browser.
func (b *Backend) Initialize(ctx context.Context, opts backend.Options) (backend.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pw: starting browser: %w", err)
	}

	launchOpts, err := b.launchOptions(opts)
	if err != nil {
		return nil, err
	}

	p, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("pw: starting playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch b.engine {
	case Firefox:
		bt = p.Firefox
	case WebKit:
		bt = p.WebKit
	default:
		bt = p.Chromium
	}

	br, err := bt.Launch(launchOpts)
	if err != nil {
		p.Stop()
		return nil, fmt.Errorf("pw: launching %s: %w", b.engine, err)
	}
	b.logger.WithField("version", br.Version()).Debug("browser started")
	return &browser{pw: p, browser: br}, nil
}

// chromiumOnly lists the options only the Chromium engine understands.
var chromiumOnly = []string{
	backend.KeyBrowserExecutablePath,
	backend.KeyBrowserNoSandbox,
	backend.KeyBrowserAutoDownload,
}

// launchOptions maps opts to Playwright launch options. Only Chromium gets
// an executable and command line switches; Playwright manages the Firefox
// and WebKit builds itself.
func (b *Backend) launchOptions(opts backend.Options) (playwright.BrowserTypeLaunchOptions, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Bool(backend.KeyBrowserHeadless)),
	}
	if b.engine != Chromium {
		for _, key := range chromiumOnly {
			if opts.Bool(key) || opts.String(key) != "" {
				b.logger.WithField("option", key).Debug("option ignored by this engine")
			}
		}
		return launchOpts, nil
	}

	execPath, err := launch.Executable(opts)
	if err != nil {
		return launchOpts, err
	}
	for _, s := range launch.Switches(opts) {
		launchOpts.Args = append(launchOpts.Args, "--"+s)
	}
	if execPath != "" {
		launchOpts.ExecutablePath = playwright.String(execPath)
	}
	return launchOpts, nil
}

// GetPageData loads the url option in a fresh browser context and
// serializes the document.
func (b *Backend) GetPageData(ctx context.Context, h backend.Browser, opts backend.Options) (*backend.PageData, error) {
	br, ok := h.(*browser)
	if !ok {
		return nil, fmt.Errorf("pw: unexpected browser handle %T", h)
	}
	targetURL := opts.String(backend.KeyURL)
	logger := b.logger.WithField("url", targetURL)

	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Int(backend.KeyBrowserWidth),
			Height: opts.Int(backend.KeyBrowserHeight),
		},
	}
	if ua := opts.String(backend.KeyUserAgent); ua != "" {
		ctxOpts.UserAgent = playwright.String(ua)
	}
	bctx, err := br.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("pw: creating browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("pw: creating page: %w", err)
	}

	// Playwright calls do not take a context; closing the page unblocks them.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if blocker := pageproc.NewBlocker(opts); len(blocker) > 0 {
		if err := page.Route("**/*", func(route playwright.Route) {
			req := route.Request()
			if blocker.Blocks(req.ResourceType()) {
				logger.WithField("request", req.URL()).Debug("blocked request")
				route.Abort("blockedbyclient")
				return
			}
			route.Continue()
		}); err != nil {
			return nil, fmt.Errorf("pw: installing request filter: %w", err)
		}
	}

	gotoOpts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if d := opts.Duration(backend.KeyBrowserLoadMaxTime); d > 0 {
		gotoOpts.Timeout = playwright.Float(float64(d.Milliseconds()))
	}
	if _, err := page.Goto(targetURL, gotoOpts); err != nil {
		return nil, b.captureError(ctx, targetURL, err)
	}

	if d := opts.Duration(backend.KeyBrowserWaitDelay); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, b.captureError(ctx, targetURL, ctx.Err())
		case <-timer.C:
		}
	}
	if opts.Bool(backend.KeyLoadDeferredImages) {
		if _, err := page.Evaluate(scripts.DeferredImages(), opts.Int(backend.KeyLoadDeferredImagesMaxIdleTime)); err != nil {
			return nil, b.captureError(ctx, targetURL, err)
		}
	}
	if opts.Bool(backend.KeyRemoveHiddenElements) {
		if _, err := page.Evaluate(scripts.HiddenElements(), scripts.HiddenAttribute); err != nil {
			return nil, b.captureError(ctx, targetURL, err)
		}
	}

	res, err := page.Evaluate(scripts.Serialize())
	if err != nil {
		return nil, b.captureError(ctx, targetURL, err)
	}
	snap, err := snapshot(res)
	if err != nil {
		return nil, err
	}
	logger.WithField("bytes", len(snap.HTML)).Debug("page serialized")
	return pageproc.Finish(snap.HTML, snap.Title, opts)
}

// CloseBrowser closes the browser and stops the driver.
func (b *Backend) CloseBrowser(h backend.Browser) error {
	br, ok := h.(*browser)
	if !ok {
		return fmt.Errorf("pw: unexpected browser handle %T", h)
	}
	err := br.browser.Close()
	if stopErr := br.pw.Stop(); err == nil {
		err = stopErr
	}
	if err != nil {
		return fmt.Errorf("pw: closing browser: %w", err)
	}
	return nil
}

func (b *Backend) captureError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return fmt.Errorf("pw: capturing %s: %w", url, err)
}

func snapshot(v any) (scripts.Snapshot, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return scripts.Snapshot{}, fmt.Errorf("pw: unexpected snapshot value %T", v)
	}
	title, _ := m["title"].(string)
	html, ok := m["html"].(string)
	if !ok {
		return scripts.Snapshot{}, fmt.Errorf("pw: snapshot has no html")
	}
	return scripts.Snapshot{Title: title, HTML: html}, nil
}
