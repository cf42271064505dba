package engine

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tusklang/tusk-go/internal/eval"
)

// debounceWindow absorbs the burst of write events editors emit when saving.
const debounceWindow = 200 * time.Millisecond

// Watch evaluates the document at path, then re-evaluates on every change
// until ctx is canceled. Each result, including failures, is delivered to
// fn; a broken intermediate save does not stop the watch.
func (e *Engine) Watch(ctx context.Context, path string, fn func(*eval.Tree, []eval.Warning, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}

	tree, warnings, evalErr := e.Load(ctx, path)
	fn(tree, warnings, evalErr)

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
				fire = debounce.C
			} else {
				debounce.Reset(debounceWindow)
			}
			// Some editors replace the file on save, which drops the watch.
			watcher.Add(path)

		case <-fire:
			debounce = nil
			fire = nil
			e.Invalidate(path)
			tree, warnings, evalErr := e.Load(ctx, path)
			fn(tree, warnings, evalErr)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("File watcher error.", "path", path, "error", err)
		}
	}
}
