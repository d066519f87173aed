// trc - the TinyRust+ semantic checker
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/RocioCM/tinyrust-compiler/cache"
	"github.com/RocioCM/tinyrust-compiler/compiler"
	"github.com/RocioCM/tinyrust-compiler/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("trc")

// errCheckFailed makes trc exit with status 1 without printing anything
// beyond the reports.
var errCheckFailed = errors.New("check failed")

// app holds the state shared by all subcommands.
type app struct {
	// Global flags
	configDir string
	verbosity int
	noCache   bool

	manifest *manifest.Manifest
	opts     compiler.Options
	cache    *cache.Cache
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "trc",
		Short: "trc - TinyRust+ semantic checker",
		Long: `trc runs the TinyRust+ semantic analysis (declarations and sentences)
over already-parsed program trees stored as JSON, YAML or CBOR documents.

Project settings are read from the nearest tinyrust.toml.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.load() },
	}

	root.PersistentFlags().StringVarP(&a.configDir, "config", "C", ".", "directory to search upwards for tinyrust.toml")
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "do not read or write the report cache")

	root.AddCommand(
		newCheckCmd(a),
		newSymbolsCmd(a),
		newWatchCmd(a),
		newConvertCmd(a),
		newLSPCmd(a),
		newServeCmd(a),
		newCacheCmd(a),
	)
	return root, a
}

// execute runs trc with args, writing command output to stdout and
// diagnostics summaries to stderr.
func execute(args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	defer a.close()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// load reads the project configuration and sets up logging.
func (a *app) load() error {
	m, err := manifest.LoadOrDefault(a.configDir)
	if err != nil {
		return err
	}
	a.manifest = m

	verbosity := m.Log.Verbosity
	if a.verbosity > 0 {
		verbosity = a.verbosity
	}
	commonlog.Configure(verbosity, m.LogFile())

	a.opts, err = m.CheckOptions()
	if err != nil {
		return err
	}
	log.Debugf("project %s (%s)", m.Project.Name, m.Dir)
	return nil
}

// openCache opens the report cache, or returns nil when caching is off.
func (a *app) openCache() (*cache.Cache, error) {
	if a.noCache || !a.manifest.Cache.Enabled {
		return nil, nil
	}
	if a.cache != nil {
		return a.cache, nil
	}
	c, err := cache.Open(a.manifest.CachePath())
	if err != nil {
		return nil, err
	}
	a.cache = c
	return c, nil
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warningf("closing cache: %v", err)
		}
		a.cache = nil
	}
}

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
		}
		os.Exit(1)
	}
}
