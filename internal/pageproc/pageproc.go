// Package pageproc turns the DOM serialized by a browser into the document
// returned by a capture, applying the document level options.
package pageproc

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/porticus-lab/go-singlefile/backend"
	"github.com/porticus-lab/go-singlefile/internal/scripts"
)

// CSP is the content security policy inserted when insertMetaCSP is set. It
// only allows resources embedded in the document itself.
const CSP = "default-src 'none'; font-src 'self' data:; img-src 'self' data:; " +
	"style-src 'unsafe-inline'; media-src 'self' data:; script-src 'unsafe-inline' data:; " +
	"object-src 'self' data:; frame-src 'self' data:;"

const bom = "\ufeff"

// Process applies opts to the serialized document raw captured from url.
func Process(raw string, url string, opts backend.Options, now time.Time) (string, error) {
	if opts.Bool(backend.KeySaveRawPage) {
		return withBOM(raw, opts), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("pageproc: parsing document: %w", err)
	}

	hidden := doc.Find("[" + scripts.HiddenAttribute + "]")
	if opts.Bool(backend.KeyRemoveHiddenElements) {
		hidden.Remove()
	} else {
		hidden.RemoveAttr(scripts.HiddenAttribute)
	}
	if opts.Bool(backend.KeyBlockScripts) {
		doc.Find("script").Remove()
	}
	if opts.Bool(backend.KeyRemoveFrames) {
		doc.Find("iframe, frame, frameset").Remove()
	}
	if opts.Bool(backend.KeyRemoveAlternativeImages) {
		doc.Find("picture > source").Remove()
		doc.Find("img[srcset]").RemoveAttr("srcset")
	}
	if opts.Bool(backend.KeyRemoveAlternativeMedias) {
		doc.Find(`link[rel~="stylesheet"][media], style[media]`).Each(func(_ int, s *goquery.Selection) {
			if media, _ := s.Attr("media"); printOnly(media) {
				s.Remove()
			}
		})
	}

	// Inserted markup is built as nodes. Parsing it as a fragment in the
	// context of <html> would add a second head and body.
	head := doc.Find("head").First()
	if opts.Bool(backend.KeyInsertMetaNoIndex) {
		head.PrependNodes(meta(
			html.Attribute{Key: "name", Val: "robots"},
			html.Attribute{Key: "content", Val: "noindex"},
		))
	}
	if opts.Bool(backend.KeyInsertMetaCSP) {
		doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
			if v, _ := s.Attr("http-equiv"); strings.EqualFold(v, "content-security-policy") {
				s.Remove()
			}
		})
		head.PrependNodes(meta(
			html.Attribute{Key: "http-equiv", Val: "content-security-policy"},
			html.Attribute{Key: "content", Val: CSP},
		))
	}
	if opts.Bool(backend.KeyInsertSingleFileComment) {
		doc.Find("html").First().PrependNodes(&html.Node{
			Type: html.CommentNode,
			Data: commentText(url, opts.String(backend.KeyInfobarTemplate), now),
		})
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("pageproc: serializing document: %w", err)
	}
	return withBOM(out, opts), nil
}

func meta(attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: atom.Meta, Data: "meta", Attr: attrs}
}

// Comment renders the comment that identifies a saved page. The bundled
// infobar reads it back.
func Comment(url, info string, now time.Time) string {
	return "<!--" + commentText(url, info, now) + "-->"
}

func commentText(url, info string, now time.Time) string {
	var b strings.Builder
	b.WriteString("\n Page saved with SingleFile \n url: ")
	b.WriteString(sanitizeComment(url))
	b.WriteString(" \n saved date: ")
	b.WriteString(now.Format(time.RFC1123))
	if info != "" {
		b.WriteString(" \n info: ")
		b.WriteString(sanitizeComment(info))
	}
	b.WriteString("\n")
	return b.String()
}

func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "--", "- -")
}

func printOnly(media string) bool {
	media = strings.ToLower(strings.TrimSpace(media))
	return media == "print" || media == "only print"
}

func withBOM(s string, opts backend.Options) string {
	if opts.Bool(backend.KeyIncludeBOM) && !strings.HasPrefix(s, bom) {
		return bom + s
	}
	return s
}

// Finish builds the page data for a capture from the serialized DOM.
func Finish(raw, title string, opts backend.Options) (*backend.PageData, error) {
	url := opts.String(backend.KeyURL)
	content, err := Process(raw, url, opts, time.Now())
	if err != nil {
		return nil, err
	}
	return &backend.PageData{Content: content, Title: title, URL: url}, nil
}
