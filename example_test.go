package singlefile_test

import (
	"context"
	"fmt"
	"log"
	"os"

	singlefile "github.com/porticus-lab/go-singlefile"
	"github.com/porticus-lab/go-singlefile/backend"
)

func Example() {
	// Start one browser and reuse it for every capture.
	s, err := singlefile.Initialize(context.Background(), singlefile.Options{
		backend.KeyBrowserNoSandbox: true,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	html, err := s.Capture(context.Background(), "https://example.com")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Captured page: %d bytes\n", len(html))
}

func Example_oneShot() {
	html, err := singlefile.Capture(context.Background(), "https://example.com", singlefile.Options{
		backend.KeyBackEnd:          "rod",
		backend.KeyBlockImages:      true,
		backend.KeyIncludeInfobar:   true,
		backend.KeyBrowserNoSandbox: true,
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile("example.html", []byte(html), 0o644); err != nil {
		log.Fatal(err)
	}
}

func ExampleResolve() {
	opts := singlefile.Resolve(singlefile.Options{backend.KeyBlockScripts: false})
	fmt.Println(opts.Bool(backend.KeyBlockScripts), opts.String(backend.KeyBackEnd))
	// Output: false chromedp
}

func ExampleIsValidURL() {
	fmt.Println(singlefile.IsValidURL("https://example.com"), singlefile.IsValidURL("ftp://example.com"))
	// Output: true false
}
