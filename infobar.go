package singlefile

import (
	"context"
	"fmt"

	"github.com/porticus-lab/go-singlefile/backend"
)

// ScriptSource provides the source text of the infobar script, without
// markup.
type ScriptSource interface {
	InfobarScript(ctx context.Context) (string, error)
}

// ScriptSourceFunc adapts a function to [ScriptSource].
type ScriptSourceFunc func(ctx context.Context) (string, error)

func (f ScriptSourceFunc) InfobarScript(ctx context.Context) (string, error) {
	return f(ctx)
}

// The injected element removes itself as soon as it runs.
const (
	infobarOpen  = "<script>document.currentScript.remove();"
	infobarClose = "</script>"
)

// injectInfobar appends the infobar script to pd.Content.
func injectInfobar(ctx context.Context, src ScriptSource, pd *backend.PageData) error {
	script, err := src.InfobarScript(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInfobarScript, err)
	}
	pd.Content += infobarOpen + script + infobarClose
	return nil
}
