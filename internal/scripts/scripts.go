// Package scripts holds the JavaScript evaluated in captured pages and the
// sources the infobar script can be loaded from.
package scripts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

// HiddenAttribute marks elements found hidden by [HiddenElements].
const HiddenAttribute = "data-single-file-hidden"

var (
	//go:embed infobar.js
	infobar string
	//go:embed deferred_images.js
	deferredImages string
	//go:embed hidden_elements.js
	hiddenElements string
	//go:embed serialize.js
	serialize string
)

// Snapshot is the value returned by the [Serialize] function.
type Snapshot struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Infobar returns the bundled infobar script.
func Infobar() string { return infobar }

// DeferredImages returns a function expression taking the idle time in
// milliseconds. The returned promise resolves once no image has been loading
// for that long.
func DeferredImages() string { return strings.TrimSpace(deferredImages) }

// HiddenElements returns a function expression taking an attribute name. It
// sets that attribute on every element whose computed display is none and
// returns how many were marked.
func HiddenElements() string { return strings.TrimSpace(hiddenElements) }

// Serialize returns a function expression without arguments producing a
// [Snapshot] of the document, doctype included.
func Serialize() string { return strings.TrimSpace(serialize) }

// Call renders fn applied to args as a single expression, for drivers that
// evaluate expressions rather than functions.
func Call(fn string, args ...any) (string, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("scripts: encoding argument %d: %w", i, err)
		}
		encoded[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(encoded, ", ") + ")", nil
}
