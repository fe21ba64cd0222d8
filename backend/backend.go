// Package backend defines the contract between a capture session and the
// browser automation layer that actually loads and serializes pages.
package backend

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Browser is an opaque handle created by [Backend.Initialize]. Only the
// backend that created it knows its concrete type.
type Browser any

// PageData is the result of capturing one page.
type PageData struct {
	// Content is the serialized document.
	Content string
	// Title is the document title at capture time.
	Title string
	// URL is the address that was captured.
	URL string
}

// Backend launches a browser and extracts page data with it.
//
// GetPageData may be called concurrently on the same Browser.
type Backend interface {
	Initialize(ctx context.Context, opts Options) (Browser, error)
	GetPageData(ctx context.Context, b Browser, opts Options) (*PageData, error)
	CloseBrowser(b Browser) error
}

// Factory builds a Backend. It is called once per session.
type Factory func(logger logrus.FieldLogger) (Backend, error)
