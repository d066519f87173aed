// Package manifest handles tinyrust.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// FileName is the name of the project configuration file.
const FileName = "tinyrust.toml"

// Manifest represents a tinyrust.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Check   CheckConfig  `toml:"check"`
	Output  Output       `toml:"output"`
	Cache   CacheConfig  `toml:"cache"`
	Server  ServerConfig `toml:"server"`
	Log     LogConfig    `toml:"log"`

	// Dir is the directory containing the tinyrust.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string   `toml:"name"`
	Sources []string `toml:"sources"`
}

// CheckConfig tunes the semantic checks.
type CheckConfig struct {
	Undefined      string   `toml:"undefined"`
	Unreachable    bool     `toml:"unreachable"`
	FailOnWarnings bool     `toml:"fail-on-warnings"`
	Disabled       []string `toml:"disabled"`
}

// Output configures how reports are written.
type Output struct {
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// CacheConfig configures the report cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// ServerConfig configures `trc serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Default returns the configuration used when no tinyrust.toml exists.
func Default(dir string) *Manifest {
	return &Manifest{
		Project: Project{Sources: []string{"."}},
		Check:   CheckConfig{Undefined: "error", Unreachable: true},
		Output:  Output{Format: FormatText},
		Cache:   CacheConfig{Enabled: true, Path: filepath.Join(".tinyrust", "cache.db")},
		Server:  ServerConfig{Addr: ":4567"},
		Dir:     dir,
	}
}

// Load parses a tinyrust.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Decode over the defaults so unset keys keep them.
	m := Default(abs)
	m.Project.Sources = nil
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	m.Dir = abs

	if len(m.Project.Sources) == 0 {
		m.Project.Sources = []string{"."}
	}
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(abs)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a tinyrust.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// LoadOrDefault is FindAndLoad falling back to Default(startDir).
func LoadOrDefault(startDir string) (*Manifest, error) {
	m, err := FindAndLoad(startDir)
	if err != nil || m != nil {
		return m, err
	}
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	return Default(abs), nil
}

func (m *Manifest) validate() error {
	if _, err := m.CheckOptions(); err != nil {
		return err
	}
	switch m.Output.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatJSON, m.Output.Format)
	}
	if m.Log.Verbosity < 0 {
		return fmt.Errorf("log.verbosity must not be negative")
	}
	return nil
}

// CheckOptions maps the [check] section to analyzer options.
func (m *Manifest) CheckOptions() (compiler.Options, error) {
	opts := compiler.DefaultOptions()
	if err := opts.UndefinedSeverity.UnmarshalText([]byte(m.Check.Undefined)); err != nil {
		return opts, fmt.Errorf("check.undefined: %w", err)
	}
	opts.Unreachable = m.Check.Unreachable
	for _, name := range m.Check.Disabled {
		code := compiler.Code(name)
		if !compiler.KnownCode(code) {
			return opts, fmt.Errorf("check.disabled: unknown rule %q", name)
		}
		opts.Disabled = append(opts.Disabled, code)
	}
	return opts, nil
}

// SourcePaths returns absolute paths for the configured source entries.
func (m *Manifest) SourcePaths() []string {
	var paths []string
	for _, s := range m.Project.Sources {
		paths = append(paths, m.resolve(s))
	}
	return paths
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// OutputDir returns the absolute report directory, or "" to write reports
// to stdout.
func (m *Manifest) OutputDir() string {
	if m.Output.Dir == "" {
		return ""
	}
	return m.resolve(m.Output.Dir)
}

// LogFile returns the absolute log file path, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.resolve(m.Log.File)
	return &p
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
