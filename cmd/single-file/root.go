package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	singlefile "github.com/porticus-lab/go-singlefile"
)

// globalState holds everything the command touches outside its flags.
type globalState struct {
	fs        afero.Fs
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	logger    *logrus.Logger

	// registry defaults to singlefile.DefaultRegistry.
	registry *singlefile.Registry
}

func newGlobalState() *globalState {
	return &globalState{
		fs:        afero.NewOsFs(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
		logger: &logrus.Logger{
			Out:       os.Stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
}

type rootCommand struct {
	gs      *globalState
	cmd     *cobra.Command
	options []optionFlag

	configFile      string
	envFile         string
	logFormat       string
	verbose         bool
	urlsFile        string
	maxParallel     int
	output          string
	outputDirectory string
	s3Bucket        string
	s3Prefix        string
	s3Endpoint      string
	infobarScript   string
	infobarRetryOn  string
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{gs: gs}
	c.cmd = &cobra.Command{
		Use:   "single-file [flags] [url...]",
		Short: "save web pages as single HTML files",
		Long: "Save each URL, loaded in a headless browser, as one self-contained HTML file.\n\n" +
			"Capture options are read from the defaults, then --config, then " + envPrefix + "*\n" +
			"environment variables, then the flags given on the command line.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		RunE:              c.run,
	}
	c.cmd.SetOut(gs.stdout)
	c.cmd.SetErr(gs.stderr)
	c.cmd.Flags().AddFlagSet(c.flagSet())
	return c
}

func (c *rootCommand) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&c.logFormat, "log-format", "text", "log output format, text or json")
	flags.StringVarP(&c.configFile, "config", "c", "", "YAML or JSON file of capture options")
	flags.StringVar(&c.envFile, "env-file", "", "dotenv file of "+envPrefix+"* variables")
	flags.StringVar(&c.urlsFile, "urls-file", "", "file with one URL per line")
	flags.IntVar(&c.maxParallel, "max-parallel", 1, "number of pages captured at once")
	flags.StringVarP(&c.output, "output", "o", "", "output file for a single URL, - for stdout")
	flags.StringVar(&c.outputDirectory, "output-directory", ".", "directory where pages are saved")
	flags.StringVar(&c.s3Bucket, "s3-bucket", "", "save pages to this S3 bucket instead of a directory")
	flags.StringVar(&c.s3Prefix, "s3-prefix", "", "key prefix of pages saved to S3")
	flags.StringVar(&c.s3Endpoint, "s3-endpoint", "", "S3 endpoint URL (default $S3_ENDPOINT_URL)")
	flags.StringVar(&c.infobarScript, "infobar-script", "", "file or http(s) URL of the infobar script")
	flags.StringVar(&c.infobarRetryOn, "infobar-retry-on", "",
		"failures retried when downloading the infobar script, e.g. 5xx,connect-failure,429 "+
			"(default gateway-error,connect-failure,retriable-4xx)")
	c.options = addOptionFlags(flags)
	return flags
}

func (c *rootCommand) persistentPreRunE(*cobra.Command, []string) error {
	c.gs.logger.SetOutput(c.gs.stderr)
	if c.verbose {
		c.gs.logger.SetLevel(logrus.DebugLevel)
	}
	switch c.logFormat {
	case "", "text":
		c.gs.logger.SetFormatter(new(logrus.TextFormatter))
	case "json":
		c.gs.logger.SetFormatter(new(logrus.JSONFormatter))
	default:
		return fmt.Errorf("unknown log format %q", c.logFormat)
	}

	if c.envFile != "" {
		data, err := afero.ReadFile(c.gs.fs, c.envFile)
		if err != nil {
			return fmt.Errorf("reading env file: %w", err)
		}
		fileEnv, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parsing env file %s: %w", c.envFile, err)
		}
		// Variables already in the environment win over the file.
		lookup := c.gs.lookupEnv
		c.gs.lookupEnv = func(k string) (string, bool) {
			if v, ok := lookup(k); ok {
				return v, true
			}
			v, ok := fileEnv[k]
			return v, ok
		}
	}
	return nil
}

// overrides returns the capture options given by the config file, the
// environment and the command line.
func (c *rootCommand) overrides() (singlefile.Options, error) {
	return optionSources{
		fs:         c.gs.fs,
		configFile: c.configFile,
		lookupEnv:  c.gs.lookupEnv,
		flags:      c.cmd.Flags(),
	}.overrides(c.options)
}
