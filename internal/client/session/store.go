package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/threatpulse/securesoc/internal/model"
)

// Persisted is the JSON blob written under the well-known session path: the
// bearer token plus a copy of the identity for fast first paint. The copy is
// never authoritative; RestoreSession re-fetches the profile.
type Persisted struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      model.Identity `json:"user"`
}

// Store persists session state between runs of the same client. Watch is the
// stand-in for cross-tab storage events: other processes sharing the store
// are notified when the session changes under them.
type Store interface {
	// Load returns the persisted session and whether one exists.
	Load() (Persisted, bool, error)
	// Save replaces the persisted session.
	Save(Persisted) error
	// Clear removes any persisted session. Clearing an empty store is not an
	// error.
	Clear() error
	// Watch invokes fn whenever another writer changes the store. The
	// returned function stops watching.
	Watch(fn func()) (stop func(), err error)
}

// FileStore keeps the session blob in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the given file path. The parent
// directory must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath places the session file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "securesoc")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func (s *FileStore) Load() (Persisted, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Persisted{}, false, nil
	}
	if err != nil {
		return Persisted{}, false, err
	}
	var p Persisted
	if err := json.Unmarshal(b, &p); err != nil {
		// A corrupt blob is treated as absent; the next save rewrites it.
		return Persisted{}, false, nil
	}
	if p.Token == "" {
		return Persisted{}, false, nil
	}
	return p, true, nil
}

func (s *FileStore) Save(p Persisted) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	// Write-then-rename so watchers never observe a half-written blob.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Watch observes the parent directory, since the session file itself is
// replaced by rename and may not exist yet.
func (s *FileStore) Watch(fn func()) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	done := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == s.path && ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					fn()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()
	stop := func() {
		once.Do(func() {
			close(done)
			_ = w.Close()
		})
	}
	return stop, nil
}

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu  sync.Mutex
	p   Persisted
	set bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() (Persisted, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p, s.set, nil
}

func (s *MemoryStore) Save(p Persisted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.set = p, true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p, s.set = Persisted{}, false
	return nil
}

func (s *MemoryStore) Watch(func()) (func(), error) { return func() {}, nil }
