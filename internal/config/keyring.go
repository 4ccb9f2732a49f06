package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Keyring is the set of API keys the hub accepts. With no backing file every
// well-formed key is allowed; with one, the file is an allowlist (one key
// per line, # comments) hot-reloaded on change so keys rotate without a
// restart.
type Keyring struct {
	path    string
	watcher *fsnotify.Watcher

	mu   sync.RWMutex
	keys map[string]bool
}

// NewKeyring loads the allowlist and starts watching it. A malformed key in
// the initial file is a configuration error; later reload failures keep the
// previous key set and log.
func NewKeyring(path string) (*Keyring, error) {
	k := &Keyring{path: path}
	if path == "" {
		return k, nil
	}

	keys, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	k.keys = keys

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("key watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files on save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	k.watcher = watcher
	go k.watch()
	return k, nil
}

// Allow reports whether the key may open a session.
func (k *Keyring) Allow(key string) bool {
	if !ValidAPIKey(key) {
		return false
	}
	if k.path == "" {
		return true
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[key]
}

// Close stops the file watcher.
func (k *Keyring) Close() {
	if k.watcher != nil {
		k.watcher.Close()
	}
}

func (k *Keyring) watch() {
	abs, _ := filepath.Abs(k.path)
	var pending *time.Timer
	for {
		select {
		case event, ok := <-k.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if got, _ := filepath.Abs(event.Name); got != abs {
				continue
			}
			// Debounce: editors fire several events per save.
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(500*time.Millisecond, k.reload)
		case err, ok := <-k.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: key watcher: %v", err)
		}
	}
}

func (k *Keyring) reload() {
	keys, err := readKeyFile(k.path)
	if err != nil {
		log.Printf("config: key reload failed, keeping previous set: %v", err)
		return
	}
	k.mu.Lock()
	k.keys = keys
	k.mu.Unlock()
	log.Printf("config: reloaded %d API key(s)", len(keys))
}

func readKeyFile(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()

	keys := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		key := strings.TrimSpace(scanner.Text())
		if key == "" || strings.HasPrefix(key, "#") {
			continue
		}
		if !ValidAPIKey(key) {
			return nil, badKeyErr(line, key)
		}
		keys[key] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return keys, nil
}
