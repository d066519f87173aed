package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/RocioCM/tinyrust-compiler/compiler/treefile"
)

// watcher reports tree documents that changed under a set of paths, once
// their events have settled for the debounce period.
type watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool // explicitly watched files; empty means any tree document
	debounce time.Duration
	onChange func(paths []string)

	mu      sync.Mutex
	pending map[string]time.Time
}

// newWatcher watches paths (files or directories, recursively). onChange is
// called from the watcher goroutine with the sorted settled paths.
func newWatcher(paths []string, debounce time.Duration, onChange func([]string)) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fs:       fw,
		files:    make(map[string]bool),
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
	}

	for _, p := range paths {
		if err := w.add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.files[filepath.Clean(path)] = true
		return w.fs.Add(filepath.Dir(path))
	}
	// fsnotify does not recurse, so every directory is added.
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(p)
	})
}

func (w *watcher) relevant(path string) bool {
	if len(w.files) > 0 {
		return w.files[filepath.Clean(path)]
	}
	return treefile.IsTreeFile(path)
}

// run processes events until ctx is done, then closes the watcher.
func (w *watcher) run(ctx context.Context) error {
	defer w.fs.Close()

	tick := w.debounce / 5
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watch error: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		// Pick up new directories.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && len(w.files) == 0 {
			if err := w.add(event.Name); err != nil {
				log.Warningf("watching %s: %v", event.Name, err)
			}
			return
		}
	}
	if !w.relevant(event.Name) {
		return
	}
	log.Debugf("%s: %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flush hands the paths whose events have settled to onChange.
func (w *watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	var existing []string
	for _, p := range settled {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return
	}
	sort.Strings(existing)
	w.onChange(existing)
}

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-check tree documents whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = a.manifest.SourcePaths()
			}
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			check := func(files []string) {
				results, err := a.checkFiles(ctx, files)
				if err != nil {
					log.Errorf("%v", err)
					return
				}
				if err := writeReports(out, results, "text", ""); err != nil {
					log.Errorf("%v", err)
				}
				printSummary(errOut, results, a.manifest.Check.FailOnWarnings)
			}

			// Initial pass over everything.
			files, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(files) > 0 {
				check(files)
			}

			w, err := newWatcher(args, debounce, check)
			if err != nil {
				return err
			}
			fmt.Fprintln(errOut, dimStyle.Render("watching "+strings.Join(args, ", ")+" (Ctrl-C to stop)"))
			return w.run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "quiet period before re-checking a changed file")
	return cmd
}
