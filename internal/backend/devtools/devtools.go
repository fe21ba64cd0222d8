// Package devtools captures pages with a Chromium driven over the DevTools
// protocol by chromedp.
package devtools

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/porticus-lab/go-singlefile/backend"
	"github.com/porticus-lab/go-singlefile/internal/launch"
	"github.com/porticus-lab/go-singlefile/internal/pageproc"
	"github.com/porticus-lab/go-singlefile/internal/scripts"
)

// Backend implements [backend.Backend]. Every capture runs in its own tab,
// so captures may run concurrently on one browser.
type Backend struct {
	logger logrus.FieldLogger
}

// New returns a chromedp backend logging to logger.
func New(logger logrus.FieldLogger) *Backend {
	return &Backend{logger: logger.WithField("backend", "chromedp")}
}

type browser struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

var resourceTypes = map[string]network.ResourceType{
	pageproc.ResourceImage:      network.ResourceTypeImage,
	pageproc.ResourceStylesheet: network.ResourceTypeStylesheet,
	pageproc.ResourceFont:       network.ResourceTypeFont,
	pageproc.ResourceScript:     network.ResourceTypeScript,
	pageproc.ResourceMedia:      network.ResourceTypeMedia,
}

// Initialize starts the browser and waits until it accepts commands.
func (b *Backend) Initialize(ctx context.Context, opts backend.Options) (backend.Browser, error) {
	execPath, err := launch.Executable(opts)
	if err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Int(backend.KeyBrowserWidth), opts.Int(backend.KeyBrowserHeight)),
	)
	for _, s := range launch.Switches(opts) {
		allocOpts = append(allocOpts, chromedp.Flag(s, true))
	}
	if opts.Bool(backend.KeyBrowserHeadless) {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	if ua := opts.String(backend.KeyUserAgent); ua != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(ua))
	}

	// The browser outlives ctx; ctx only bounds the startup.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	stop := context.AfterFunc(ctx, browserCancel)

	err = chromedp.Run(browserCtx)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("devtools: starting browser: %w", err)
	}

	b.logger.WithField("executable", execPath).Debug("browser started")
	return &browser{allocCancel: allocCancel, ctx: browserCtx, cancel: browserCancel}, nil
}

// GetPageData loads the page named by the url option in a new tab and
// serializes it.
func (b *Backend) GetPageData(ctx context.Context, h backend.Browser, opts backend.Options) (*backend.PageData, error) {
	br, ok := h.(*browser)
	if !ok {
		return nil, fmt.Errorf("devtools: unexpected browser handle %T", h)
	}
	targetURL := opts.String(backend.KeyURL)
	logger := b.logger.WithField("url", targetURL)

	tabCtx, tabCancel := chromedp.NewContext(br.ctx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()
	if d := opts.Duration(backend.KeyBrowserLoadMaxTime); d > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, d)
		defer cancel()
	}

	var actions []chromedp.Action
	if kinds := pageproc.NewBlocker(opts).Kinds(); len(kinds) > 0 {
		patterns := make([]*fetch.RequestPattern, 0, len(kinds))
		for _, k := range kinds {
			patterns = append(patterns, &fetch.RequestPattern{
				URLPattern:   "*",
				ResourceType: resourceTypes[k],
				RequestStage: fetch.RequestStageRequest,
			})
		}
		chromedp.ListenTarget(tabCtx, func(ev any) {
			paused, ok := ev.(*fetch.EventRequestPaused)
			if !ok {
				return
			}
			go func() {
				execCtx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
				if err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
					logger.WithError(err).Debug("failing blocked request")
					return
				}
				logger.WithField("request", paused.Request.URL).Debug("blocked request")
			}()
		})
		actions = append(actions, fetch.Enable().WithPatterns(patterns))
	}

	actions = append(actions,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if d := opts.Duration(backend.KeyBrowserWaitDelay); d > 0 {
		actions = append(actions, chromedp.Sleep(d))
	}
	if opts.Bool(backend.KeyLoadDeferredImages) {
		expr, err := scripts.Call(scripts.DeferredImages(), opts.Int(backend.KeyLoadDeferredImagesMaxIdleTime))
		if err != nil {
			return nil, err
		}
		var done bool
		actions = append(actions, chromedp.Evaluate(expr, &done, awaitPromise))
	}
	if opts.Bool(backend.KeyRemoveHiddenElements) {
		expr, err := scripts.Call(scripts.HiddenElements(), scripts.HiddenAttribute)
		if err != nil {
			return nil, err
		}
		var marked int
		actions = append(actions, chromedp.Evaluate(expr, &marked))
	}
	serialize, err := scripts.Call(scripts.Serialize())
	if err != nil {
		return nil, err
	}
	var snap scripts.Snapshot
	actions = append(actions, chromedp.Evaluate(serialize, &snap))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("devtools: capturing %s: %w", targetURL, err)
	}
	logger.WithField("bytes", len(snap.HTML)).Debug("page serialized")
	return pageproc.Finish(snap.HTML, snap.Title, opts)
}

// CloseBrowser shuts the browser process down.
func (b *Backend) CloseBrowser(h backend.Browser) error {
	br, ok := h.(*browser)
	if !ok {
		return fmt.Errorf("devtools: unexpected browser handle %T", h)
	}
	br.cancel()
	br.allocCancel()
	return nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}
