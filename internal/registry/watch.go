package registry

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the file registry whenever the backing file changes. Events
// are debounced because editors and atomic-rename writers emit bursts. The
// watcher runs until the file system watcher itself fails.
func (f *File) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(f.path); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := w.Add(ev.Name); err != nil {
						slog.Error("optin watch re-add", "path", ev.Name, "err", err)
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(250 * time.Millisecond)
				}
			case <-debounce.C:
				if err := f.Reload(); err != nil {
					slog.Error("optin reload failed", "err", err)
				} else {
					slog.Info("optin registry reloaded", "members", len(f.List()))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("optin watch error", "err", err)
			}
		}
	}()
	return nil
}
