package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/renderqueue/engine/core"
)

// Watcher reloads a configuration file whenever it changes on disk and
// delivers every valid version on Changes. Invalid versions are logged and
// dropped, the last valid one stays in effect.
type Watcher struct {
	path string

	fsnotify *fsnotify.Watcher
	changes  chan *Config
	done     chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	isClosed bool
}

func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files on save, so the directory is watched instead of the file.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		changes:  make(chan *Config, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Changes delivers reloaded configurations. Only the latest one is kept when
// the receiver falls behind. The channel is closed by Close.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.isClosed {
		w.mu.Unlock()
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	defer close(w.changes)
	defer w.fsnotify.Close()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		core.LogWarn("config watcher: keeping previous configuration: %s", err)
		return
	}
	core.LogInfo("config watcher: reloaded %s", w.path)
	// Replace a pending configuration nobody picked up yet.
	select {
	case <-w.changes:
	default:
	}
	w.changes <- c
}
