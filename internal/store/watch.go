package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetloom-cli/internal/sheet"
)

// DebounceInterval coalesces bursts of writes into one snapshot.
const DebounceInterval = 200 * time.Millisecond

func (d *DB) subscribe() (int, <-chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	ch := make(chan struct{}, 1)
	d.subs[id] = ch
	return id, ch
}

func (d *DB) unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, id)
}

// notify wakes in-process watchers without blocking the writer.
func (d *DB) notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch delivers the current sheet list to onChange immediately and again
// after every change, whether made by this process or by another process
// writing the same database file. It blocks until ctx is done.
func (d *DB) Watch(ctx context.Context, onChange func([]sheet.Sheet)) error {
	id, local := d.subscribe()
	defer d.unsubscribe(id)

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if d.path != ":memory:" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer w.Close()
		if err := w.Add(filepath.Dir(d.path)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(d.path), err)
		}
		fsEvents, fsErrors = w.Events, w.Errors
	}

	emit := func() error {
		list, err := d.List(ctx)
		if err != nil {
			return err
		}
		onChange(list)
		return nil
	}
	if err := emit(); err != nil {
		return err
	}

	base := filepath.Base(d.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	arm := func() { timer.Reset(DebounceInterval) }

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-local:
			arm()
		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			if strings.HasPrefix(filepath.Base(ev.Name), base) && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				arm()
			}
		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			d.log.Warn("database watcher error", zap.Error(err))
		case <-timer.C:
			if err := emit(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.log.Warn("reload sheets failed", zap.Error(err))
			}
		}
	}
}
