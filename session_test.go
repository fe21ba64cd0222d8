package singlefile_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	singlefile "github.com/porticus-lab/go-singlefile"
	"github.com/porticus-lab/go-singlefile/backend"
)

// fakeBackend records how a session drives it.
type fakeBackend struct {
	content string
	initErr error
	pageErr error
	block   chan struct{}
	started chan struct{}

	mu       sync.Mutex
	inits    int
	closes   int
	captured []backend.Options
}

type fakeBrowser struct{ id int }

func (f *fakeBackend) Initialize(_ context.Context, _ backend.Options) (backend.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &fakeBrowser{id: f.inits}, nil
}

func (f *fakeBackend) GetPageData(_ context.Context, b backend.Browser, opts backend.Options) (*backend.PageData, error) {
	if _, ok := b.(*fakeBrowser); !ok {
		return nil, errors.New("foreign handle")
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.captured = append(f.captured, opts.Clone())
	f.mu.Unlock()
	// Backends may scribble on the options they are given.
	opts[backend.KeyBlockImages] = "scribbled"
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return &backend.PageData{Content: f.content, URL: opts.String(backend.KeyURL)}, nil
}

func (f *fakeBackend) CloseBrowser(backend.Browser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeBackend) counts() (inits, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits, f.closes
}

func fakeRegistry(f *fakeBackend) *singlefile.Registry {
	r := singlefile.NewRegistry()
	r.Register("fake", func(logrus.FieldLogger) (backend.Backend, error) { return f, nil })
	return r
}

func quietLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func newTestSession(t *testing.T, f *fakeBackend, overrides singlefile.Options, opts ...singlefile.Option) *singlefile.Session {
	t.Helper()
	o := singlefile.Options{backend.KeyBackEnd: "fake"}
	for k, v := range overrides {
		o[k] = v
	}
	opts = append([]singlefile.Option{
		singlefile.WithRegistry(fakeRegistry(f)),
		singlefile.WithLogger(quietLogger()),
	}, opts...)
	s, err := singlefile.Initialize(context.Background(), o, opts...)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitialize_UnknownBackendLaunchesNothing(t *testing.T) {
	f := &fakeBackend{}
	_, err := singlefile.Initialize(context.Background(),
		singlefile.Options{backend.KeyBackEnd: "nonexistent"},
		singlefile.WithRegistry(fakeRegistry(f)),
		singlefile.WithLogger(quietLogger()),
	)
	if !errors.Is(err, singlefile.ErrUnknownBackend) {
		t.Fatalf("err = %v, want ErrUnknownBackend", err)
	}
	if inits, _ := f.counts(); inits != 0 {
		t.Errorf("browser initialized %d times", inits)
	}
}

func TestInitialize_BrowserInitError(t *testing.T) {
	boom := errors.New("no display")
	f := &fakeBackend{initErr: boom}
	_, err := singlefile.Initialize(context.Background(),
		singlefile.Options{backend.KeyBackEnd: "fake"},
		singlefile.WithRegistry(fakeRegistry(f)),
		singlefile.WithLogger(quietLogger()),
	)
	if !errors.Is(err, singlefile.ErrBrowserInit) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrBrowserInit wrapping the cause", err)
	}
}

func TestCapture_ReturnsContentUnchanged(t *testing.T) {
	f := &fakeBackend{content: "<html></html>"}
	s := newTestSession(t, f, singlefile.Options{backend.KeyIncludeInfobar: false})

	got, err := s.Capture(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got != "<html></html>" {
		t.Errorf("Capture = %q, want %q", got, "<html></html>")
	}
}

func TestCapture_AppendsInfobar(t *testing.T) {
	f := &fakeBackend{content: "<html></html>"}
	src := singlefile.ScriptSourceFunc(func(context.Context) (string, error) { return "X();", nil })
	s := newTestSession(t, f,
		singlefile.Options{backend.KeyIncludeInfobar: true},
		singlefile.WithInfobarScriptSource(src),
	)

	got, err := s.Capture(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	want := "<html></html><script>document.currentScript.remove();X();</script>"
	if got != want {
		t.Errorf("Capture = %q, want %q", got, want)
	}
}

func TestCapture_DefaultInfobarScript(t *testing.T) {
	f := &fakeBackend{content: "<html></html>"}
	s := newTestSession(t, f, singlefile.Options{backend.KeyIncludeInfobar: true})

	got, err := s.Capture(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.HasPrefix(got, "<html></html><script>document.currentScript.remove();") ||
		!strings.HasSuffix(got, "</script>") ||
		!strings.Contains(got, "Page saved with SingleFile") {
		t.Errorf("unexpected infobar injection: %.120q", got)
	}
}

func TestCapture_InfobarScriptError(t *testing.T) {
	boom := errors.New("unreachable")
	f := &fakeBackend{content: "<html></html>"}
	src := singlefile.ScriptSourceFunc(func(context.Context) (string, error) { return "", boom })
	s := newTestSession(t, f,
		singlefile.Options{backend.KeyIncludeInfobar: true},
		singlefile.WithInfobarScriptSource(src),
	)

	got, err := s.Capture(context.Background(), "https://example.com")
	if !errors.Is(err, singlefile.ErrInfobarScript) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrInfobarScript wrapping the cause", err)
	}
	if got != "" {
		t.Errorf("partial result returned: %q", got)
	}
}

func TestCapture_BackendError(t *testing.T) {
	boom := errors.New("navigation failed")
	f := &fakeBackend{pageErr: boom}
	s := newTestSession(t, f, nil)

	_, err := s.Capture(context.Background(), "https://example.com")
	if !errors.Is(err, singlefile.ErrCapture) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrCapture wrapping the cause", err)
	}
}

func TestCapture_PerCallOptions(t *testing.T) {
	f := &fakeBackend{content: "x"}
	s := newTestSession(t, f, singlefile.Options{"backendSpecific": 7})

	for _, u := range []string{"https://a.example", "https://b.example"} {
		if _, err := s.Capture(context.Background(), u); err != nil {
			t.Fatal(err)
		}
	}

	if got := f.captured[0].String(backend.KeyURL); got != "https://a.example" {
		t.Errorf("first capture url = %q", got)
	}
	if got := f.captured[1].String(backend.KeyURL); got != "https://b.example" {
		t.Errorf("second capture url = %q", got)
	}
	if got := f.captured[1].Int("backendSpecific"); got != 7 {
		t.Errorf("unknown option not passed through: %v", got)
	}

	opts := s.Options()
	if _, ok := opts[backend.KeyURL]; ok {
		t.Error("url leaked into the session options")
	}
	if got := opts.Bool(backend.KeyBlockImages); got {
		t.Error("backend mutation leaked into the session options")
	}
	if _, ok := f.captured[1][backend.KeyBlockImages].(bool); !ok {
		t.Error("backend mutation leaked into the next capture")
	}
}

func TestCapture_DumpContent(t *testing.T) {
	f := &fakeBackend{content: "<p>dump</p>"}
	var buf bytes.Buffer
	s := newTestSession(t, f,
		singlefile.Options{backend.KeyDumpContent: true},
		singlefile.WithDumpWriter(&buf),
	)

	if _, err := s.Capture(context.Background(), "https://example.com"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<p>dump</p>\n" {
		t.Errorf("dumped %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCapture_DumpWriteErrorIsLogged(t *testing.T) {
	f := &fakeBackend{content: "<p>dump</p>"}
	logger, hook := test.NewNullLogger()
	s := newTestSession(t, f,
		singlefile.Options{backend.KeyDumpContent: true},
		singlefile.WithLogger(logger),
		singlefile.WithDumpWriter(failingWriter{}),
	)

	got, err := s.Capture(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got != "<p>dump</p>" {
		t.Errorf("Capture = %q", got)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "dumping content failed" {
			warned = true
			if cause, _ := e.Data[logrus.ErrorKey].(error); cause == nil || cause.Error() != "disk full" {
				t.Errorf("logged error = %v", e.Data[logrus.ErrorKey])
			}
		}
	}
	if !warned {
		t.Error("failed dump write was not logged")
	}
}

func TestCapture_LogsProgress(t *testing.T) {
	f := &fakeBackend{content: "12345"}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := newTestSession(t, f, nil, singlefile.WithLogger(logger))

	if _, err := s.Capture(context.Background(), "https://example.com"); err != nil {
		t.Fatal(err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "capture ok" {
		t.Fatalf("last log entry = %+v", entry)
	}
	if entry.Data["bytes"] != 5 || entry.Data["url"] != "https://example.com" {
		t.Errorf("log fields = %v", entry.Data)
	}
}

func TestCapture_Concurrent(t *testing.T) {
	f := &fakeBackend{content: "ok"}
	s := newTestSession(t, f, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Capture(context.Background(), "https://example.com"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	f := &fakeBackend{}
	s := newTestSession(t, f, nil)

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, closes := f.counts(); closes != 1 {
		t.Errorf("browser closed %d times, want 1", closes)
	}
}

func TestSession_UsedAfterClose(t *testing.T) {
	f := &fakeBackend{}
	s := newTestSession(t, f, nil)
	s.Close()

	_, err := s.Capture(context.Background(), "https://example.com")
	if !errors.Is(err, singlefile.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSession_CloseWaitsForCapture(t *testing.T) {
	f := &fakeBackend{content: "ok", block: make(chan struct{}), started: make(chan struct{})}
	s := newTestSession(t, f, nil)

	captured := make(chan error)
	go func() {
		_, err := s.Capture(context.Background(), "https://example.com")
		captured <- err
	}()
	<-f.started

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a capture was running")
	case <-time.After(50 * time.Millisecond):
	}
	if _, closes := f.counts(); closes != 0 {
		t.Fatal("browser released under a running capture")
	}

	close(f.block)
	if err := <-captured; err != nil {
		t.Fatalf("Capture: %v", err)
	}
	<-closed
	if _, closes := f.counts(); closes != 1 {
		t.Errorf("browser closed %d times, want 1", closes)
	}
}

func TestCapture_PackageLevel(t *testing.T) {
	f := &fakeBackend{content: "<html></html>"}
	got, err := singlefile.Capture(context.Background(), "https://example.com",
		singlefile.Options{backend.KeyBackEnd: "fake"},
		singlefile.WithRegistry(fakeRegistry(f)),
		singlefile.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<html></html>" {
		t.Errorf("Capture = %q", got)
	}
	if inits, closes := f.counts(); inits != 1 || closes != 1 {
		t.Errorf("inits = %d, closes = %d, want 1 and 1", inits, closes)
	}
}

func TestCaptureFile(t *testing.T) {
	f := &fakeBackend{content: "<html></html>"}
	s := newTestSession(t, f, nil)

	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<p>local</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CaptureFile(context.Background(), path); err != nil {
		t.Fatalf("CaptureFile: %v", err)
	}
	got := f.captured[0].String(backend.KeyURL)
	if !strings.HasPrefix(got, "file://") || !strings.HasSuffix(got, "/page.html") {
		t.Errorf("captured url = %q", got)
	}
	if !singlefile.IsValidURL(got) {
		t.Errorf("%q is not a valid capture URL", got)
	}

	_, err := s.CaptureFile(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	if !errors.Is(err, singlefile.ErrCapture) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrCapture wrapping a not-exist error", err)
	}
}
