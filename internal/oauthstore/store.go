// Package oauthstore persists OAuth credentials to disk using the same
// atomic-write idiom as internal/config, and watches the file for external
// changes (e.g. a concurrent "login" run from the CLI while gatewayd serve
// is already running).
package oauthstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/gatewayd/internal/logger"
)

// TokenRecord is the persisted shape of a single OAuth credential.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	LongLived    bool      `json:"long_lived"`
	Scope        string    `json:"scope,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// IsExpired reports whether the token is past its expiry, accounting for
// consts.TokenRefreshSkew being applied by the caller.
func (t TokenRecord) IsExpired(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-skew))
}

// ErrNoToken is returned by Load when no token has been persisted yet.
var ErrNoToken = errors.New("oauthstore: no token stored")

// Store guards a TokenRecord persisted at Path with an RWMutex and notifies
// watchers of changes written by other processes.
type Store struct {
	path string

	mu      sync.RWMutex
	current *TokenRecord

	log *logger.Logger

	watchOnce sync.Once
	watcher   *fsnotify.Watcher
	onChange  []func(*TokenRecord)
}

// New creates a Store backed by path. It does not load the file; call Load.
func New(path string) *Store {
	return &Store{
		path: path,
		log:  logger.Global().WithPrefix("oauthstore"),
	}
}

// Load reads the persisted token from disk into memory. It returns
// ErrNoToken if the file does not exist.
func (s *Store) Load() (*TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, err
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = &rec
	s.mu.Unlock()

	return &rec, nil
}

// Current returns the in-memory token without touching disk.
func (s *Store) Current() (*TokenRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	cp := *s.current
	return &cp, true
}

// Save writes rec to disk atomically and updates the in-memory copy.
func (s *Store) Save(rec *TokenRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, readErr := os.ReadFile(s.path); readErr == nil && bytes.Equal(existing, data) {
		s.current = rec
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return err
	}

	s.current = rec
	return nil
}

// Clear removes the persisted token (used by the "logout" command).
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// OnChange registers a callback invoked whenever the token file changes on
// disk (written by another process). Starts the underlying watcher lazily.
func (s *Store) OnChange(fn func(*TokenRecord)) error {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()

	var startErr error
	s.watchOnce.Do(func() {
		startErr = s.startWatch()
	})
	return startErr
}

func (s *Store) startWatch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				rec, err := s.Load()
				if err != nil {
					s.log.Debug("reload after external change failed: %v", err)
					continue
				}
				s.mu.RLock()
				callbacks := append([]func(*TokenRecord){}, s.onChange...)
				s.mu.RUnlock()
				for _, cb := range callbacks {
					cb(rec)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("token watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the filesystem watcher, if one was started.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
