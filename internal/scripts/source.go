package scripts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/afero"

	"github.com/porticus-lab/go-singlefile/internal/retry"
)

// Embedded serves the bundled infobar script.
type Embedded struct{}

func (Embedded) InfobarScript(context.Context) (string, error) {
	return Infobar(), nil
}

// File reads the infobar script from a file on every call.
type File struct {
	Fs   afero.Fs
	Path string
}

// NewFile returns a File reading path from fs, or from the OS filesystem
// when fs is nil.
func NewFile(fs afero.Fs, path string) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &File{Fs: fs, Path: path}
}

func (f *File) InfobarScript(context.Context) (string, error) {
	b, err := afero.ReadFile(f.Fs, f.Path)
	if err != nil {
		return "", fmt.Errorf("scripts: reading %s: %w", f.Path, err)
	}
	return string(b), nil
}

// maxScriptSize bounds the body read by HTTP.
const maxScriptSize = 4 << 20

// HTTP downloads the infobar script on every call.
type HTTP struct {
	URL    string
	Client *http.Client
}

// NewHTTP returns an HTTP source whose client retries the failures selected
// by on with exponential backoff. A nil on retries gateway errors, 409 and
// connection failures.
func NewHTTP(url string, on *retry.On) *HTTP {
	if on == nil {
		on = retry.DefaultOn()
	}
	return &HTTP{
		URL: url,
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &retry.Transport{
				Strategy: retry.Backoff{Base: 200 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 3},
				On:       on,
			},
		},
	}
}

func (h *HTTP) InfobarScript(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return "", fmt.Errorf("scripts: %w", err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scripts: fetching %s: %w", h.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scripts: fetching %s: unexpected status %s", h.URL, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize))
	if err != nil {
		return "", fmt.Errorf("scripts: reading %s: %w", h.URL, err)
	}
	return string(b), nil
}
