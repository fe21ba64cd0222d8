package singlefile

import "errors"

// Sentinel errors returned by the library. Errors returned by [Initialize]
// and [Session] wrap exactly one of them; use [errors.Is] to test.
var (
	// ErrUnknownBackend is returned when the backEnd option names a backend
	// that is not registered or is disabled.
	ErrUnknownBackend = errors.New("singlefile: unknown backend")

	// ErrModuleLoad is returned when a registered backend cannot be built.
	ErrModuleLoad = errors.New("singlefile: cannot load backend")

	// ErrBrowserInit is returned when the backend fails to start a browser.
	ErrBrowserInit = errors.New("singlefile: starting browser")

	// ErrCapture is returned when the backend fails to produce page data.
	ErrCapture = errors.New("singlefile: capture failed")

	// ErrInfobarScript is returned when the infobar script cannot be loaded.
	ErrInfobarScript = errors.New("singlefile: loading infobar script")

	// ErrSessionClosed is returned when a closed [Session] is used.
	ErrSessionClosed = errors.New("singlefile: session is closed")
)
