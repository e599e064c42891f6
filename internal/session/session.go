// Package session owns one open container and serializes access to it. The shell
// and the HTTP API both edit through a Session.
package session

import (
	"errors"
	"sync"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/datfile"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

var (
	// ErrNoPath is returned by Save when the session was not opened from a file.
	ErrNoPath = errors.New("session: no file path to save to")
	// ErrEditInView is returned by View when fn edited the container.
	ErrEditInView = errors.New("session: container edited inside View")
)

// Config describes how to open a session.
type Config struct {
	Path    string
	Backup  bool
	Logger  logger.Logger
	Options []dat.Option
}

// Session is a single-writer wrapper around a container. Every access, reads
// included, takes the lock: identifying records fills the container's cache.
type Session struct {
	mu     sync.Mutex
	c      *dat.Container
	path   string
	backup bool
	dirty  bool
	log    logger.Logger
}

// Open loads cfg.Path and starts a session over it.
func Open(cfg Config) (*Session, error) {
	s := newSession(cfg)
	opts := append(append([]dat.Option(nil), cfg.Options...), s.options()...)
	c, err := datfile.Load(cfg.Path, opts...)
	if err != nil {
		return nil, err
	}
	s.c = c
	hdr := c.Header()
	s.log.Info("opened container", "path", cfg.Path, "size", c.Len(), "tag", hdr.TagString())
	return s, nil
}

// FromBytes starts a session over an in-memory image. cfg.Path, if set, is where
// Save writes.
func FromBytes(buf []byte, cfg Config) (*Session, error) {
	s := newSession(cfg)
	opts := append(append([]dat.Option(nil), cfg.Options...), s.options()...)
	c, err := dat.Load(buf, opts...)
	if err != nil {
		return nil, err
	}
	s.c = c
	return s, nil
}

func newSession(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Session{path: cfg.Path, backup: cfg.Backup, log: log}
}

// options are appended after the caller's so the session's hook and logger win.
func (s *Session) options() []dat.Option {
	return []dat.Option{
		dat.WithLogger(s.log),
		dat.WithChangeHook(func(ch dat.Change) {
			s.dirty = true
			s.log.Info("edit", "kind", ch.Kind, "offset", ch.Offset, "change", ch.Description)
		}),
	}
}

// View runs a read-only fn. Reads still take the exclusive lock because they fill
// the record cache. An edit made by fn is kept but reported as ErrEditInView.
func (s *Session) View(fn func(c *dat.Container) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.c.Changes())
	if err := fn(s.c); err != nil {
		return err
	}
	if n := len(s.c.Changes()) - before; n != 0 {
		s.log.Error("edit inside read-only view", "changes", n)
		return ErrEditInView
	}
	return nil
}

// Update runs fn with exclusive access to the container.
func (s *Session) Update(fn func(c *dat.Container) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.c)
}

// Path returns the file the session was opened from.
func (s *Session) Path() string {
	return s.path
}

// Dirty reports whether edits were made since the last save.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Save writes the container back to its file and clears the change log.
func (s *Session) Save() error {
	if s.path == "" {
		return ErrNoPath
	}
	return s.SaveAs(s.path)
}

// SaveAs writes the container to path. The session keeps its original path.
func (s *Session) SaveAs(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := datfile.Save(path, s.c, datfile.SaveOptions{Backup: s.backup}); err != nil {
		return err
	}
	s.log.Info("saved container", "path", path, "size", s.c.Len(), "changes", len(s.c.Changes()))
	if path == s.path {
		s.c.ClearChanges()
		s.dirty = false
	}
	return nil
}
