package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	singlefile "github.com/porticus-lab/go-singlefile"
)

// envPrefix prefixes the environment variable of every capture option.
const envPrefix = "SINGLEFILE_"

// optionFlag ties a capture option to its command line flag.
type optionFlag struct {
	key  string
	name string
	def  any
}

// flagName turns an option key into a flag name: insertMetaCSP becomes
// insert-meta-csp.
func flagName(key string) string {
	r := []rune(key)
	var b strings.Builder
	for i, c := range r {
		if unicode.IsUpper(c) && i > 0 {
			prevLower := unicode.IsLower(r[i-1])
			// A trailing plural s stays with its acronym: URLs.
			nextLower := i+1 < len(r) && unicode.IsLower(r[i+1]) &&
				!(i+2 == len(r) && r[i+1] == 's')
			if prevLower || (unicode.IsUpper(r[i-1]) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}

// envName returns the environment variable read for an option key.
func envName(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName(key), "-", "_"))
}

// addOptionFlags registers one flag per default option on fs. The flag type
// follows the type of the default value.
func addOptionFlags(fs *pflag.FlagSet) []optionFlag {
	defaults := singlefile.DefaultOptions()
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	flags := make([]optionFlag, 0, len(keys))
	for _, key := range keys {
		f := optionFlag{key: key, name: flagName(key), def: defaults[key]}
		usage := fmt.Sprintf("capture option %s (env %s)", key, envName(key))
		switch v := f.def.(type) {
		case bool:
			fs.Bool(f.name, v, usage)
		case int:
			fs.Int(f.name, v, usage)
		case []string:
			fs.StringSlice(f.name, v, usage)
		default:
			fs.String(f.name, fmt.Sprint(v), usage)
		}
		flags = append(flags, f)
	}
	return flags
}

// parse converts s to the type of the option default.
func (f optionFlag) parse(s string) (any, error) {
	switch f.def.(type) {
	case bool:
		return strconv.ParseBool(s)
	case int:
		return strconv.Atoi(s)
	case []string:
		if s == "" {
			return []string{}, nil
		}
		return strings.Split(s, ","), nil
	default:
		return s, nil
	}
}

// flagValue reads the current value of the flag from fs.
func (f optionFlag) flagValue(fs *pflag.FlagSet) (any, error) {
	switch f.def.(type) {
	case bool:
		return fs.GetBool(f.name)
	case int:
		return fs.GetInt(f.name)
	case []string:
		return fs.GetStringSlice(f.name)
	default:
		return fs.GetString(f.name)
	}
}

// optionSources are the layers merged into capture overrides, lowest
// precedence first.
type optionSources struct {
	fs         afero.Fs
	configFile string
	lookupEnv  func(string) (string, bool)
	flags      *pflag.FlagSet
}

// overrides merges the config file, the environment and explicitly set
// flags. Options left at their default are not included, so the library
// defaults stay authoritative.
func (s optionSources) overrides(flags []optionFlag) (singlefile.Options, error) {
	out := singlefile.Options{}

	if s.configFile != "" {
		data, err := afero.ReadFile(s.fs, s.configFile)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", s.configFile, err)
		}
		for k, v := range fromFile {
			out[k] = v
		}
	}

	if s.lookupEnv != nil {
		for _, f := range flags {
			raw, ok := s.lookupEnv(envName(f.key))
			if !ok {
				continue
			}
			v, err := f.parse(raw)
			if err != nil {
				return nil, fmt.Errorf("environment variable %s: %w", envName(f.key), err)
			}
			out[f.key] = v
		}
	}

	if s.flags != nil {
		for _, f := range flags {
			if !s.flags.Changed(f.name) {
				continue
			}
			v, err := f.flagValue(s.flags)
			if err != nil {
				return nil, err
			}
			out[f.key] = v
		}
	}
	return out, nil
}
