package coordinator

import (
	"context"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/turnroom/turnroom/pkg/logger"
)

var pages = []string{"index.html", "room.html"}

// Templates keeps the parsed pages and reloads them
// when the files change (if run as a service).
type Templates struct {
	dir string

	mu  sync.RWMutex
	tpl *template.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *logger.Logger
}

func NewTemplates(dir string, log *logger.Logger) (*Templates, error) {
	t := &Templates{dir: dir, log: log}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) load() error {
	files := make([]string, len(pages))
	for i, p := range pages {
		files[i] = filepath.Join(t.dir, p)
	}
	tpl, err := template.ParseFiles(files...)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.tpl = tpl
	t.mu.Unlock()
	return nil
}

func (t *Templates) Render(w io.Writer, name string, data any) error {
	t.mu.RLock()
	tpl := t.tpl
	t.mu.RUnlock()
	return tpl.ExecuteTemplate(w, name, data)
}

func (t *Templates) Run() {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.log.Error().Err(err).Msg("template watcher")
		return
	}
	if err = w.Add(t.dir); err != nil {
		t.log.Error().Err(err).Msg("template watcher")
		_ = w.Close()
		return
	}
	t.mu.Lock()
	t.watcher, t.done = w, make(chan struct{})
	t.mu.Unlock()
	t.log.Info().Str("dir", t.dir).Msg("Watching templates")
	go t.watch(w, t.done)
}

func (t *Templates) watch(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !strings.HasSuffix(e.Name, ".html") {
				continue
			}
			if err := t.load(); err != nil {
				t.log.Warn().Err(err).Msg("Templates are not reloaded")
				continue
			}
			t.log.Info().Str("file", filepath.Base(e.Name)).Msg("Templates reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			t.log.Warn().Err(err).Msg("template watcher")
		}
	}
}

func (t *Templates) Shutdown(context.Context) error {
	t.mu.Lock()
	w, done := t.watcher, t.done
	t.watcher = nil
	t.mu.Unlock()
	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}

func (t *Templates) String() string { return "templates::" + t.dir }
