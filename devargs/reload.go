package devargs

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gravwell/gcfg"
)

// overrideFile is the ini-style on-disk shape of a devargs override file:
//
//	[devargs]
//	rx_inject_en = true
//	meta_buf_sz = 2048
//
// Values are stored as strings regardless of declared type so that Args'
// typed getters perform the conversion uniformly whether a knob came from
// the command line or the override file.
type overrideFile struct {
	Devargs struct {
		Values map[string]string `gcfg:"*"`
	}
}

// LoadOverrideFile parses an ini-style override file via gcfg and merges it
// into a, last-write-wins.
func LoadOverrideFile(a *Args, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var of overrideFile
	if err := gcfg.ReadStringInto(&of, string(b)); err != nil {
		return err
	}
	for k, v := range of.Devargs.Values {
		a.Set(k, v)
	}
	return nil
}

// Watcher live-reloads an override file into an Args set whenever it
// changes on disk, grounded on the teacher's filewatch package: a single
// fsnotify watcher goroutine feeding reload events to one or more sinks.
type Watcher struct {
	w    *fsnotify.Watcher
	args *Args
	path string

	stopOnce sync.Once
	done     chan struct{}
}

// WatchOverrideFile starts watching path for changes, merging its contents
// into args on every write. The initial contents (if the file exists) are
// loaded synchronously before the watcher goroutine starts.
func WatchOverrideFile(args *Args, path string) (*Watcher, error) {
	if err := LoadOverrideFile(args, path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{w: fw, args: args, path: path, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				_ = LoadOverrideFile(w.args, w.path)
			}
		case _, ok := <-w.w.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the watcher goroutine and releases the underlying fsnotify
// watch. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.w.Close()
		<-w.done
	})
	return err
}
