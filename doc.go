// Package singlefile saves web pages as self-contained HTML documents by
// driving a headless browser.
//
// # Sessions
//
// [Initialize] merges caller options with [DefaultOptions], starts the
// browser backend named by the backEnd option and returns a [Session] that
// reuses that browser for every capture:
//
//	s, err := singlefile.Initialize(ctx, singlefile.Options{
//	    backend.KeyBlockImages: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	html, err := s.Capture(ctx, "https://example.com")
//
// For a single page use the package-level helper:
//
//	html, err := singlefile.Capture(ctx, "https://example.com", nil)
//
// # Options
//
// Options is a flat map keyed by the Key* constants of package backend.
// [Resolve] overlays caller values on the defaults; keys it does not know
// are passed to the backend untouched.
//
// # Backends
//
// [DefaultRegistry] provides "chromedp" (the default), "rod",
// "playwright-chromium", "playwright-firefox" and "playwright-webkit".
// Chrome or Chromium must be available in PATH, or set browserAutoDownload:
//
//	s, err := singlefile.Initialize(ctx, singlefile.Options{
//	    backend.KeyBrowserAutoDownload: true,
//	})
//
// The Playwright backends need the Playwright driver and browsers installed.
//
// # Infobar
//
// With includeInfobar set, a script that displays where and when the page
// was saved is appended to each capture. [WithInfobarScriptSource] replaces
// the bundled script.
package singlefile
