// Package watch re-reads flow source files when they change on disk
// and hands their content to a callback - the flowc watch loop uses it
// to push edited code into a live Temporal. The watcher itself never
// touches a flow: all flow access stays serialized in the callback's
// goroutine, keeping the single-writer discipline of the core.
package watch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/flowlang/flow/internal/code"
)

// OnChange receives the changed path and its re-read content. An error
// returned from the callback stops the watch loop.
type OnChange func(path string, src code.Code) error

// Run watches paths until ctx is cancelled, invoking onChange for each
// write. The initial content of every path is delivered once before
// watching begins, so a fresh session starts from the files as they
// are.
func Run(ctx context.Context, paths []string, onChange OnChange) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	watched := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := deliver(abs, onChange); err != nil {
			return err
		}
		// Watch the directory, not the file: editors replace files on
		// save and a file watch dies with the old inode.
		dir := filepath.Dir(abs)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return err
			}
			watched[dir] = true
		}
		watched[abs] = true
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			if err := deliver(abs, onChange); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

func deliver(path string, onChange OnChange) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return onChange(path, code.New(string(data)))
}
