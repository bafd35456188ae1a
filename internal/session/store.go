// Package session persists the tab forest across restarts and carries the
// built-in seed sessions reachable under owl://session/<slug>.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
)

// Tab is one saved node. Group nodes carry Children and no URL.
type Tab struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Pinned    bool   `json:"pinned,omitempty"`
	Muted     bool   `json:"muted,omitempty"`
	Group     bool   `json:"group,omitempty"`
	Collapsed bool   `json:"collapsed,omitempty"`
	Active    bool   `json:"active,omitempty"`
	Children  []Tab  `json:"children,omitempty"`
}

// Snapshot is a saved tab forest.
type Snapshot struct {
	Name string `json:"name,omitempty"`
	Tabs []Tab  `json:"tabs"`
}

const fileName = "session.json"

// Store persists session snapshots to a state directory.
type Store struct {
	dir string
	log pslog.Logger
}

// NewStore constructs a session store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a session store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Load reads the saved session from disk. The second return is false when no
// session has been saved yet.
func (s *Store) Load() (Snapshot, bool, error) {
	path := filepath.Join(s.dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("session load miss")
			}
			return Snapshot{}, false, nil
		}
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return Snapshot{}, false, err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		if s.log != nil {
			s.log.Warn("session load failed", "err", err)
		}
		return Snapshot{}, false, err
	}
	if s.log != nil {
		s.log.Debug("session load ok", "tabs", len(snapshot.Tabs))
	}
	return snapshot, true, nil
}

// Save writes a session snapshot to disk atomically.
func (s *Store) Save(snapshot Snapshot) error {
	path := filepath.Join(s.dir, fileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "session-*.json")
	if err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if s.log != nil {
			s.log.Warn("session save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("session save ok", "tabs", len(snapshot.Tabs))
	}
	return nil
}
