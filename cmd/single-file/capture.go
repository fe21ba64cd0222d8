package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	singlefile "github.com/porticus-lab/go-singlefile"
	"github.com/porticus-lab/go-singlefile/internal/retry"
	"github.com/porticus-lab/go-singlefile/internal/scripts"
	"github.com/porticus-lab/go-singlefile/internal/storage"
)

func (c *rootCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := c.gs.logger

	urls, err := c.urls(args)
	if err != nil {
		return err
	}
	if c.output != "" && len(urls) > 1 {
		return fmt.Errorf("--output takes a single URL, got %d", len(urls))
	}
	if c.maxParallel < 1 {
		return fmt.Errorf("--max-parallel must be at least 1")
	}

	overrides, err := c.overrides()
	if err != nil {
		return err
	}
	src, err := c.scriptSource()
	if err != nil {
		return err
	}
	store, err := c.storage(ctx)
	if err != nil {
		return err
	}

	opts := []singlefile.Option{
		singlefile.WithLogger(logger),
		singlefile.WithDumpWriter(c.gs.stdout),
	}
	if c.gs.registry != nil {
		opts = append(opts, singlefile.WithRegistry(c.gs.registry))
	}
	if src != nil {
		opts = append(opts, singlefile.WithInfobarScriptSource(src))
	}

	session, err := singlefile.Initialize(ctx, overrides, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.WithError(err).Warn("closing browser")
		}
	}()

	var failed atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(c.maxParallel)
	for _, u := range urls {
		g.Go(func() error {
			log := logger.WithField("url", u)
			html, err := session.Capture(ctx, u)
			if err != nil {
				failed.Add(1)
				log.WithError(err).Error("capture failed")
				return nil
			}
			location, err := c.save(ctx, store, u, html)
			if err != nil {
				failed.Add(1)
				log.WithError(err).Error("saving page failed")
				return nil
			}
			if location != "" {
				log.WithField("location", location).Info("page saved")
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d captures failed", n, len(urls))
	}
	return nil
}

// urls collects the URLs from args and --urls-file and checks every one of
// them before any browser is started.
func (c *rootCommand) urls(args []string) ([]string, error) {
	urls := append([]string(nil), args...)
	if c.urlsFile != "" {
		data, err := afero.ReadFile(c.gs.fs, c.urlsFile)
		if err != nil {
			return nil, fmt.Errorf("reading URL list: %w", err)
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading URL list: %w", err)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no URL to capture")
	}
	for _, u := range urls {
		if !singlefile.IsValidURL(u) {
			return nil, fmt.Errorf("invalid URL %q: must start with http://, https:// or file://", u)
		}
	}
	return urls, nil
}

// storage returns where pages go when --output is not set.
func (c *rootCommand) storage(ctx context.Context) (storage.Storage, error) {
	if c.output != "" {
		return nil, nil
	}
	if c.s3Bucket != "" {
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:   c.s3Bucket,
			Prefix:   c.s3Prefix,
			Endpoint: c.s3Endpoint,
		})
	}
	return storage.NewFileStorage(storage.FileConfig{Fs: c.gs.fs, Directory: c.outputDirectory}), nil
}

// scriptSource returns the infobar script source named by --infobar-script,
// or nil for the bundled script.
func (c *rootCommand) scriptSource() (singlefile.ScriptSource, error) {
	var on *retry.On
	if c.infobarRetryOn != "" {
		var err error
		if on, err = retry.ParseOn(c.infobarRetryOn); err != nil {
			return nil, fmt.Errorf("--infobar-retry-on: %w", err)
		}
	}
	switch {
	case c.infobarScript == "":
		return nil, nil
	case strings.HasPrefix(c.infobarScript, "http://"), strings.HasPrefix(c.infobarScript, "https://"):
		return scripts.NewHTTP(c.infobarScript, on), nil
	default:
		return scripts.NewFile(c.gs.fs, c.infobarScript), nil
	}
}

// save writes one captured page and returns its location. Pages written to
// stdout have no location.
func (c *rootCommand) save(ctx context.Context, store storage.Storage, url, html string) (string, error) {
	switch c.output {
	case "":
		return store.Put(ctx, storage.Key(url), []byte(html))
	case "-":
		_, err := fmt.Fprint(c.gs.stdout, html)
		return "", err
	default:
		if err := afero.WriteFile(c.gs.fs, c.output, []byte(html), 0o644); err != nil {
			return "", fmt.Errorf("writing %s: %w", c.output, err)
		}
		return c.output, nil
	}
}
