// Package gorod captures pages with a Chromium controlled by go-rod.
package gorod

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/porticus-lab/go-singlefile/backend"
	"github.com/porticus-lab/go-singlefile/internal/launch"
	"github.com/porticus-lab/go-singlefile/internal/pageproc"
	"github.com/porticus-lab/go-singlefile/internal/scripts"
)

// Backend implements [backend.Backend] on top of go-rod. Each capture gets
// its own page.
type Backend struct {
	logger logrus.FieldLogger
}

// New returns a go-rod backend logging to logger.
func New(logger logrus.FieldLogger) *Backend {
	return &Backend{logger: logger.WithField("backend", "rod")}
}

type browser struct {
	launcher *launcher.Launcher
	rod      *rod.Browser
}

// Initialize launches Chromium and connects to it.
func (b *Backend) Initialize(ctx context.Context, opts backend.Options) (backend.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("gorod: starting browser: %w", err)
	}
	execPath, err := launch.Executable(opts)
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(opts.Bool(backend.KeyBrowserHeadless)).
		Set(flags.Flag("window-size"), strconv.Itoa(opts.Int(backend.KeyBrowserWidth))+","+strconv.Itoa(opts.Int(backend.KeyBrowserHeight)))
	for _, s := range launch.Switches(opts) {
		l = l.Set(flags.Flag(s))
	}
	if execPath != "" {
		l = l.Bin(execPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("gorod: starting browser: %w", err)
	}
	r := rod.New().ControlURL(controlURL)
	if err := r.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("gorod: connecting to browser: %w", err)
	}

	b.logger.WithField("controlURL", controlURL).Debug("browser started")
	return &browser{launcher: l, rod: r}, nil
}

// GetPageData opens a page on the url option, waits for the load event and
// serializes the document.
func (b *Backend) GetPageData(ctx context.Context, h backend.Browser, opts backend.Options) (*backend.PageData, error) {
	br, ok := h.(*browser)
	if !ok {
		return nil, fmt.Errorf("gorod: unexpected browser handle %T", h)
	}
	targetURL := opts.String(backend.KeyURL)
	logger := b.logger.WithField("url", targetURL)

	page, err := br.rod.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("gorod: opening page: %w", err)
	}
	defer page.Context(context.Background()).Close()
	if d := opts.Duration(backend.KeyBrowserLoadMaxTime); d > 0 {
		page = page.Timeout(d)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Int(backend.KeyBrowserWidth),
		Height:            opts.Int(backend.KeyBrowserHeight),
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("gorod: setting viewport: %w", err)
	}
	if ua := opts.String(backend.KeyUserAgent); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			return nil, fmt.Errorf("gorod: setting user agent: %w", err)
		}
	}

	if blocker := pageproc.NewBlocker(opts); len(blocker) > 0 {
		router := page.HijackRequests()
		router.MustAdd("*", func(hj *rod.Hijack) {
			if blocker.Blocks(string(hj.Request.Type())) {
				logger.WithField("request", hj.Request.URL().String()).Debug("blocked request")
				hj.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
			hj.ContinueRequest(&proto.FetchContinueRequest{})
		})
		go router.Run()
		defer router.Stop()
	}

	if err := page.Navigate(targetURL); err != nil {
		return nil, fmt.Errorf("gorod: navigating to %s: %w", targetURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("gorod: loading %s: %w", targetURL, err)
	}
	if d := opts.Duration(backend.KeyBrowserWaitDelay); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("gorod: capturing %s: %w", targetURL, ctx.Err())
		case <-timer.C:
		}
	}
	if opts.Bool(backend.KeyLoadDeferredImages) {
		maxIdle := opts.Int(backend.KeyLoadDeferredImagesMaxIdleTime)
		if _, err := page.Evaluate(rod.Eval(scripts.DeferredImages(), maxIdle).ByPromise()); err != nil {
			return nil, fmt.Errorf("gorod: loading deferred images: %w", err)
		}
	}
	if opts.Bool(backend.KeyRemoveHiddenElements) {
		if _, err := page.Evaluate(rod.Eval(scripts.HiddenElements(), scripts.HiddenAttribute)); err != nil {
			return nil, fmt.Errorf("gorod: marking hidden elements: %w", err)
		}
	}

	res, err := page.Evaluate(rod.Eval(scripts.Serialize()))
	if err != nil {
		return nil, fmt.Errorf("gorod: serializing %s: %w", targetURL, err)
	}
	var snap scripts.Snapshot
	if err := res.Value.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("gorod: decoding snapshot: %w", err)
	}
	logger.WithField("bytes", len(snap.HTML)).Debug("page serialized")
	return pageproc.Finish(snap.HTML, snap.Title, opts)
}

// CloseBrowser closes the browser and removes its profile directory.
func (b *Backend) CloseBrowser(h backend.Browser) error {
	br, ok := h.(*browser)
	if !ok {
		return fmt.Errorf("gorod: unexpected browser handle %T", h)
	}
	err := br.rod.Close()
	br.launcher.Kill()
	br.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("gorod: closing browser: %w", err)
	}
	return nil
}
