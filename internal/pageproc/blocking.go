package pageproc

import (
	"strings"

	"github.com/porticus-lab/go-singlefile/backend"
)

// Resource types as named by the DevTools protocol and Playwright, lower case.
const (
	ResourceImage      = "image"
	ResourceStylesheet = "stylesheet"
	ResourceFont       = "font"
	ResourceScript     = "script"
	ResourceMedia      = "media"
)

// Blocker decides which requests a page may make during a capture.
type Blocker map[string]bool

// NewBlocker reads the block* options. Browsers do not tell audio from video
// requests apart, so media is blocked when either blockVideos or blockAudios
// is set.
func NewBlocker(opts backend.Options) Blocker {
	b := Blocker{}
	set := func(kind string, key string) {
		if opts.Bool(key) {
			b[kind] = true
		}
	}
	set(ResourceImage, backend.KeyBlockImages)
	set(ResourceStylesheet, backend.KeyBlockStylesheets)
	set(ResourceFont, backend.KeyBlockFonts)
	set(ResourceScript, backend.KeyBlockScripts)
	set(ResourceMedia, backend.KeyBlockVideos)
	set(ResourceMedia, backend.KeyBlockAudios)
	return b
}

// Blocks reports whether a request of resourceType must be failed. The
// comparison ignores case.
func (b Blocker) Blocks(resourceType string) bool {
	return b[strings.ToLower(resourceType)]
}

// Kinds returns the blocked resource types in a stable order.
func (b Blocker) Kinds() []string {
	var kinds []string
	for _, k := range []string{ResourceImage, ResourceStylesheet, ResourceFont, ResourceScript, ResourceMedia} {
		if b[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
