package backend

import (
	"strconv"
	"time"
)

// Recognized option keys. The spelling matches the keys accepted in JSON and
// YAML configuration files.
const (
	KeyRemoveHiddenElements                  = "removeHiddenElements"
	KeyRemoveUnusedStyles                    = "removeUnusedStyles"
	KeyRemoveUnusedFonts                     = "removeUnusedFonts"
	KeyRemoveFrames                          = "removeFrames"
	KeyCompressHTML                          = "compressHTML"
	KeyCompressCSS                           = "compressCSS"
	KeyLoadDeferredImages                    = "loadDeferredImages"
	KeyLoadDeferredImagesMaxIdleTime         = "loadDeferredImagesMaxIdleTime"
	KeyLoadDeferredImagesBlockCookies        = "loadDeferredImagesBlockCookies"
	KeyLoadDeferredImagesBlockStorage        = "loadDeferredImagesBlockStorage"
	KeyLoadDeferredImagesKeepZoomLevel       = "loadDeferredImagesKeepZoomLevel"
	KeyLoadDeferredImagesDispatchScrollEvent = "loadDeferredImagesDispatchScrollEvent"
	KeyFilenameTemplate                      = "filenameTemplate"
	KeyInfobarTemplate                       = "infobarTemplate"
	KeyIncludeInfobar                        = "includeInfobar"
	KeyFilenameMaxLength                     = "filenameMaxLength"
	KeyFilenameMaxLengthUnit                 = "filenameMaxLengthUnit"
	KeyFilenameReplacedCharacters            = "filenameReplacedCharacters"
	KeyFilenameReplacementCharacter          = "filenameReplacementCharacter"
	KeyMaxResourceSizeEnabled                = "maxResourceSizeEnabled"
	KeyMaxResourceSize                       = "maxResourceSize"
	KeyBackgroundSave                        = "backgroundSave"
	KeyRemoveAlternativeFonts                = "removeAlternativeFonts"
	KeyRemoveAlternativeMedias               = "removeAlternativeMedias"
	KeyRemoveAlternativeImages               = "removeAlternativeImages"
	KeyGroupDuplicateImages                  = "groupDuplicateImages"
	KeySaveRawPage                           = "saveRawPage"
	KeyResolveFragmentIdentifierURLs         = "resolveFragmentIdentifierURLs"
	KeyUserScriptEnabled                     = "userScriptEnabled"
	KeySaveFavicon                           = "saveFavicon"
	KeyIncludeBOM                            = "includeBOM"
	KeyInsertMetaCSP                         = "insertMetaCSP"
	KeyInsertMetaNoIndex                     = "insertMetaNoIndex"
	KeyInsertSingleFileComment               = "insertSingleFileComment"
	KeyBlockImages                           = "blockImages"
	KeyBlockStylesheets                      = "blockStylesheets"
	KeyBlockFonts                            = "blockFonts"
	KeyBlockScripts                          = "blockScripts"
	KeyBlockVideos                           = "blockVideos"
	KeyBlockAudios                           = "blockAudios"
	KeyDumpContent                           = "dumpContent"

	KeyBackEnd               = "backEnd"
	KeyBrowserExecutablePath = "browserExecutablePath"
	KeyBrowserHeadless       = "browserHeadless"
	KeyBrowserNoSandbox      = "browserNoSandbox"
	KeyBrowserAutoDownload   = "browserAutoDownload"
	KeyBrowserWidth          = "browserWidth"
	KeyBrowserHeight         = "browserHeight"
	KeyBrowserLoadMaxTime    = "browserLoadMaxTime"
	KeyBrowserWaitDelay      = "browserWaitDelay"
	KeyUserAgent             = "userAgent"

	// KeyURL is set on the per-capture copy of the options.
	KeyURL = "url"
)

// Options is a flat mapping from option name to value. Values are booleans,
// numbers, strings or string lists. Keys the module does not know about are
// carried along untouched so backend specific settings survive.
type Options map[string]any

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		c := make([]any, len(t))
		for i := range t {
			c[i] = cloneValue(t[i])
		}
		return c
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = cloneValue(e)
		}
		return c
	case Options:
		return t.Clone()
	default:
		return v
	}
}

// Bool returns the boolean stored under key, or false.
func (o Options) Bool(key string) bool {
	switch t := o[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	}
	return false
}

// Int returns the number stored under key truncated to an int, or 0.
func (o Options) Int(key string) int {
	switch t := o[key].(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case uint:
		return int(t)
	case uint64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}

// String returns the string stored under key, or "".
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Strings returns the string list stored under key. Lists decoded from JSON
// or YAML arrive as []any and are converted element by element.
func (o Options) Strings(key string) []string {
	switch t := o[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		s := make([]string, 0, len(t))
		for _, e := range t {
			if str, ok := e.(string); ok {
				s = append(s, str)
			}
		}
		return s
	}
	return nil
}

// Duration interprets the number stored under key as milliseconds.
func (o Options) Duration(key string) time.Duration {
	return time.Duration(o.Int(key)) * time.Millisecond
}
