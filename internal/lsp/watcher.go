package lsp

import (
	"log"

	"github.com/fsnotify/fsnotify"

	"github.com/synthlang/synkit/internal/synth/analysis"
)

// Watcher re-runs diagnostics for open documents when their files change on
// disk outside the editor, e.g. after a formatter or generator pass.
type Watcher struct {
	srv  *Server
	fs   *fsnotify.Watcher
	done chan struct{}
}

// newWatcher watches root and starts the event loop. Individual open files
// are added as they are opened so events fire for them in nested directories.
func newWatcher(srv *Server, root string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(root); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		srv:  srv,
		fs:   fs,
		done: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Add registers an open file for change events.
func (w *Watcher) Add(path string) error {
	return w.fs.Add(path)
}

// Remove stops watching a file.
func (w *Watcher) Remove(path string) error {
	return w.fs.Remove(path)
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			// Only content changes matter.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleEvent(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

// handleEvent schedules a diagnostics run for the changed file if it is a
// Synth source the client has open. Everything else is ignored; the store
// copy stays authoritative for analysis.
func (w *Watcher) handleEvent(path string) {
	if !analysis.IsSynthFile(path) {
		return
	}

	uri := pathToURI(path)
	if _, ok := w.srv.store.Get(string(uri)); !ok {
		return
	}

	log.Printf("watcher: %s changed on disk", path)
	w.srv.scheduleDiagnostics(uri)
}
