// Package launch resolves how a Chromium based browser is started.
package launch

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/porticus-lab/go-singlefile/backend"
)

// Executable returns the browser binary to launch. An explicit
// browserExecutablePath wins. Otherwise, when browserAutoDownload is set, a
// compatible Chromium is downloaded unless already cached in
// ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows). An empty
// result lets the driver search standard locations.
func Executable(opts backend.Options) (string, error) {
	if p := opts.String(backend.KeyBrowserExecutablePath); p != "" {
		return p, nil
	}
	if !opts.Bool(backend.KeyBrowserAutoDownload) {
		return "", nil
	}
	return download()
}

var download = func() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("launch: downloading browser: %w", err)
	}
	return path, nil
}

// Switches returns the Chromium command line switches, without leading
// dashes, that every backend passes.
func Switches(opts backend.Options) []string {
	s := []string{
		"disable-gpu",
		"disable-dev-shm-usage",
		"disable-extensions",
		"disable-background-networking",
		"disable-sync",
		"disable-translate",
		"no-first-run",
	}
	if opts.Bool(backend.KeyBrowserNoSandbox) {
		s = append(s, "no-sandbox")
	}
	return s
}
