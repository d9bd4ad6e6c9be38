package workspace

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often the watcher checks the policy file
// when filesystem notifications are unavailable.
const DefaultPollInterval = 2 * time.Second

// Watcher reloads the policy file into a provider when it changes.
// Edits take effect on the next validation pass; a broken edit keeps
// the last good policy in place.
type Watcher struct {
	path     string
	provider *Provider
	onReload func(*Policy, error)

	watcher *fsnotify.Watcher
	done    chan struct{}

	closeOnce sync.Once

	mu      sync.Mutex
	lastMod time.Time
}

// Watch starts watching a policy file and feeding reloads into the
// provider. onReload, if non-nil, observes every reload attempt. When
// filesystem notifications cannot be set up the watcher falls back to
// polling, so reloads still happen, just later.
func Watch(path string, provider *Provider, onReload func(*Policy, error)) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		provider: provider,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}

	// Watch the containing directory: editors replace files by rename,
	// which drops a watch placed on the file itself.
	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if err := fsw.Add(filepath.Dir(path)); err != nil {
			fsw.Close()
			fsw = nil
		}
	}
	if fsw == nil {
		log.Printf("[workspace] warning: file notifications unavailable, polling %s every %s", path, DefaultPollInterval)
		go w.pollLoop()
		return w, nil
	}
	w.watcher = fsw
	go w.watchLoop()
	return w, nil
}

// watchLoop reacts to filesystem events for the policy file.
func (w *Watcher) watchLoop() {
	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.CheckNow()
		case <-w.watcher.Errors:
			// Drain errors so the channel never fills; events keep flowing.
		}
	}
}

// pollLoop is the fallback when fsnotify is unavailable.
func (w *Watcher) pollLoop() {
	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.CheckNow()
		}
	}
}

// CheckNow reloads the policy file if it changed since the last load.
// It returns the reload error, or nil when nothing changed.
func (w *Watcher) CheckNow() error {
	info, err := os.Stat(w.path)
	if err != nil {
		// A missing file is not a reload failure; the provider keeps
		// the last good policy.
		return nil
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.lastMod)
	if changed {
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()
	if !changed {
		return nil
	}

	policy, err := LoadPolicy(w.path)
	if err != nil {
		log.Printf("[workspace] warning: policy reload failed, keeping previous policy: %v", err)
		if w.onReload != nil {
			w.onReload(nil, err)
		}
		return err
	}

	w.provider.Replace(policy)
	log.Printf("[workspace] policy reloaded from %s", w.path)
	if w.onReload != nil {
		w.onReload(policy, nil)
	}
	return nil
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}
