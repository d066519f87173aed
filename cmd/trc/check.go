package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RocioCM/tinyrust-compiler/compiler"
	"github.com/RocioCM/tinyrust-compiler/compiler/treefile"
	"github.com/RocioCM/tinyrust-compiler/manifest"
)

// checkResult is the outcome of checking one file.
type checkResult struct {
	path   string
	report *compiler.Report
	cached bool
	err    error // the file could not be read or decoded
}

func (r checkResult) failed(failOnWarnings bool) bool {
	if r.err != nil || !r.report.OK() {
		return true
	}
	return failOnWarnings && len(r.report.Warnings()) > 0
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		format         string
		outDir         string
		failOnWarnings bool
	)

	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check tree documents and print their reports",
		Long: `Runs both semantic phases over every tree document found in the given
paths (files or directories, searched recursively). Without paths, the
project sources from tinyrust.toml are checked.

Exit status is 1 when any document has errors (or warnings, with
--fail-on-warnings).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				format = a.manifest.Output.Format
			}
			if !cmd.Flags().Changed("out") {
				outDir = a.manifest.OutputDir()
			}
			if !cmd.Flags().Changed("fail-on-warnings") {
				failOnWarnings = a.manifest.Check.FailOnWarnings
			}
			if format != manifest.FormatText && format != manifest.FormatJSON {
				return fmt.Errorf("unknown format %q", format)
			}

			if len(args) == 0 {
				args = a.manifest.SourcePaths()
			}
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no tree documents found in %s", strings.Join(args, ", "))
			}

			results, err := a.checkFiles(cmd.Context(), files)
			if err != nil {
				return err
			}
			if err := writeReports(cmd.OutOrStdout(), results, format, outDir); err != nil {
				return err
			}

			failed := printSummary(cmd.ErrOrStderr(), results, failOnWarnings)
			if failed > 0 {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", manifest.FormatText, "report format: text or json")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write one report file per document into this directory")
	cmd.Flags().BoolVar(&failOnWarnings, "fail-on-warnings", false, "exit with status 1 when there are warnings")
	return cmd
}

// collectFiles expands paths into a sorted list of tree documents.
// Directories are walked recursively, skipping hidden ones; explicit file
// arguments are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if treefile.IsTreeFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// checkFiles checks files concurrently. Results keep the order of files.
func (a *app) checkFiles(ctx context.Context, files []string) ([]checkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := a.openCache()
	if err != nil {
		return nil, err
	}

	results := make([]checkResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := checkResult{path: path}
			prog, err := treefile.ReadFile(path)
			if err != nil {
				res.err = err
				results[i] = res
				return nil
			}
			if c != nil {
				res.report, res.cached, err = c.Check(ctx, prog, a.opts)
				if err != nil && res.report == nil {
					return err
				}
				if err != nil {
					log.Warningf("%s: %v", path, err)
				}
			} else {
				res.report = compiler.Check(prog, a.opts)
			}
			log.Debugf("%s: %d diagnostics (cached: %t)", path, len(res.report.Diagnostics), res.cached)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// reportName returns the file name of the report for a document.
func reportName(path, format string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if format == manifest.FormatJSON {
		return base + ".json"
	}
	return base + ".out"
}

// writeReports renders the reports of readable documents, either into
// outDir or to w. Several text reports on w are separated by headers.
func writeReports(w io.Writer, results []checkResult, format, outDir string) error {
	var ok []checkResult
	for _, r := range results {
		if r.err == nil {
			ok = append(ok, r)
		}
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
		for _, r := range ok {
			data, err := renderReport(r.report, format)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, reportName(r.path, format))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
		}
		return nil
	}

	if format == manifest.FormatJSON {
		reports := make([]*compiler.Report, len(ok))
		for i, r := range ok {
			reports[i] = r.report
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	for _, r := range ok {
		if len(ok) > 1 {
			fmt.Fprintln(w, headerStyle.Render("== "+r.path+" =="))
		}
		if err := r.report.WriteText(w); err != nil {
			return err
		}
	}
	return nil
}

func renderReport(r *compiler.Report, format string) ([]byte, error) {
	if format == manifest.FormatJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return []byte(r.Text()), nil
}

// printSummary writes one status line per document to w and returns how
// many failed.
func printSummary(w io.Writer, results []checkResult, failOnWarnings bool) int {
	failed := 0
	for _, r := range results {
		if r.failed(failOnWarnings) {
			failed++
		}
		fmt.Fprintln(w, summaryLine(r, failOnWarnings))
	}
	if len(results) > 1 {
		fmt.Fprintf(w, "%d checked, %d failed\n", len(results), failed)
	}
	return failed
}
