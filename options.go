package singlefile

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/porticus-lab/go-singlefile/internal/scripts"
)

// sessionConfig holds the collaborators of a Session.
type sessionConfig struct {
	logger   logrus.FieldLogger
	registry *Registry
	scripts  ScriptSource
	dump     io.Writer
}

func defaultConfig() sessionConfig {
	return sessionConfig{
		logger:  logrus.StandardLogger(),
		scripts: scripts.Embedded{},
		dump:    os.Stdout,
	}
}

// Option configures a [Session].
type Option func(*sessionConfig)

// WithLogger sets the logger for progress messages. Defaults to the logrus
// standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *sessionConfig) {
		c.logger = l
	}
}

// WithRegistry selects backends from r instead of [DefaultRegistry].
func WithRegistry(r *Registry) Option {
	return func(c *sessionConfig) {
		c.registry = r
	}
}

// WithInfobarScriptSource sets where the infobar script is loaded from when
// includeInfobar is set. Defaults to the bundled script.
func WithInfobarScriptSource(src ScriptSource) Option {
	return func(c *sessionConfig) {
		c.scripts = src
	}
}

// WithDumpWriter sets where captured content is written when dumpContent is
// set. Defaults to os.Stdout.
func WithDumpWriter(w io.Writer) Option {
	return func(c *sessionConfig) {
		c.dump = w
	}
}
