package singlefile

import (
	"maps"
	"regexp"

	"github.com/porticus-lab/go-singlefile/backend"
)

// Options maps option names to values. The recognized names are the Key*
// constants of package backend.
type Options = backend.Options

// DefaultBackend is the backend used when backEnd is not set.
const DefaultBackend = "chromedp"

var defaultOptions = Options{
	backend.KeyRemoveHiddenElements:                  true,
	backend.KeyRemoveUnusedStyles:                    true,
	backend.KeyRemoveUnusedFonts:                     true,
	backend.KeyRemoveFrames:                          false,
	backend.KeyCompressHTML:                          true,
	backend.KeyCompressCSS:                           false,
	backend.KeyLoadDeferredImages:                    true,
	backend.KeyLoadDeferredImagesMaxIdleTime:         1500,
	backend.KeyLoadDeferredImagesBlockCookies:        false,
	backend.KeyLoadDeferredImagesBlockStorage:        false,
	backend.KeyLoadDeferredImagesKeepZoomLevel:       false,
	backend.KeyLoadDeferredImagesDispatchScrollEvent: false,
	backend.KeyFilenameTemplate:                      "{page-title} ({date-locale} {time-locale}).html",
	backend.KeyInfobarTemplate:                       "",
	backend.KeyIncludeInfobar:                        false,
	backend.KeyFilenameMaxLength:                     192,
	backend.KeyFilenameMaxLengthUnit:                 "bytes",
	backend.KeyFilenameReplacedCharacters: []string{
		"~", "+", `\\`, "?", "%", "*", ":", "|", `"`, "<", ">", "\x00-\x1f", "\x7F",
	},
	backend.KeyFilenameReplacementCharacter:  "_",
	backend.KeyMaxResourceSizeEnabled:        false,
	backend.KeyMaxResourceSize:               10,
	backend.KeyBackgroundSave:                true,
	backend.KeyRemoveAlternativeFonts:        true,
	backend.KeyRemoveAlternativeMedias:       true,
	backend.KeyRemoveAlternativeImages:       true,
	backend.KeyGroupDuplicateImages:          true,
	backend.KeySaveRawPage:                   false,
	backend.KeyResolveFragmentIdentifierURLs: false,
	backend.KeyUserScriptEnabled:             false,
	backend.KeySaveFavicon:                   true,
	backend.KeyIncludeBOM:                    false,
	backend.KeyInsertMetaCSP:                 true,
	backend.KeyInsertMetaNoIndex:             false,
	backend.KeyInsertSingleFileComment:       true,
	backend.KeyBlockImages:                   false,
	backend.KeyBlockStylesheets:              false,
	backend.KeyBlockFonts:                    false,
	backend.KeyBlockScripts:                  true,
	backend.KeyBlockVideos:                   true,
	backend.KeyBlockAudios:                   true,
	backend.KeyDumpContent:                   false,

	backend.KeyBackEnd:               DefaultBackend,
	backend.KeyBrowserExecutablePath: "",
	backend.KeyBrowserHeadless:       true,
	backend.KeyBrowserNoSandbox:      false,
	backend.KeyBrowserAutoDownload:   false,
	backend.KeyBrowserWidth:          1280,
	backend.KeyBrowserHeight:         720,
	backend.KeyBrowserLoadMaxTime:    60000,
	backend.KeyBrowserWaitDelay:      0,
	backend.KeyUserAgent:             "",
}

// DefaultOptions returns a copy of the default option table. Every
// recognized key is present.
func DefaultOptions() Options {
	return defaultOptions.Clone()
}

// Resolve returns the default options overlaid with overrides. The merge is
// shallow: an override replaces the default value as a whole, lists
// included. Keys without a default are kept. Neither argument nor the
// default table is modified.
func Resolve(overrides Options) Options {
	resolved := DefaultOptions()
	maps.Copy(resolved, overrides.Clone())
	return resolved
}

// ValidURL matches the addresses a capture accepts: http, https and file
// URLs.
var ValidURL = regexp.MustCompile(`^(https?|file)://`)

// IsValidURL reports whether s matches [ValidURL].
func IsValidURL(s string) bool {
	return ValidURL.MatchString(s)
}
