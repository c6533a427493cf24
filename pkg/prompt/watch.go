package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rhuss/laph/pkg/debug"
)

// reloadDelay coalesces the burst of events editors emit on save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the templates whenever a .txt file in the override
// directory changes. It blocks until ctx is cancelled. onReload, if not
// nil, is called after every reload attempt with its result.
func (b *Builder) Watch(ctx context.Context, onReload func(error)) error {
	if b.dir == "" {
		return errors.New("prompt watch: no override directory configured")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prompt watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(b.dir); err != nil {
		return fmt.Errorf("prompt watch %s: %w", b.dir, err)
	}
	debug.Log("prompt", "watching templates", "dir", b.dir)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(filepath.Base(ev.Name), ".txt") || ev.Op == fsnotify.Chmod {
				continue
			}
			debug.Log("prompt", "template changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := b.Reload()
			if err != nil {
				slog.Warn("prompt reload failed", "dir", b.dir, "error", err)
			} else {
				slog.Info("prompt templates reloaded", "dir", b.dir)
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("prompt watcher error", "error", err)
		}
	}
}
