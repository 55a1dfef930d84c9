// Package store persists the health record graph as a single
// passphrase-encrypted document on disk. The whole graph is read and written
// as one unit; concurrent processes are serialized by an advisory file lock
// held for the lifetime of the Store handle.
package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/bioself/bioself/internal/record"
)

var (
	// ErrNotInitialized is returned by mutators when no store file exists.
	ErrNotInitialized = errors.New("store not initialized; run create first")
	// ErrBadPassphrase is returned when the envelope fails to authenticate.
	ErrBadPassphrase = errors.New("invalid passphrase")
	// ErrClosed is returned by all operations after Close.
	ErrClosed = errors.New("store is closed")
)

const envelopeVersion = 1

// envelope is the on-disk format: a versioned wrapper around the argon2id
// salt and the AES-256-GCM sealed record graph.
type envelope struct {
	Version int    `json:"version"`
	Salt    string `json:"salt"`
	Data    string `json:"data"`
}

type Store struct {
	path       string
	passphrase string
	lock       *flock.Flock
	closed     bool
}

// Open acquires the store's file lock and returns a handle. The store file
// itself may not exist yet; Get reports that as an uninitialized store
// rather than an error. Open blocks until the lock is available, matching
// the one-command-at-a-time contract of the CLI.
func Open(path, passphrase string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("store: passphrase is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("store: acquire lock: %w", err)
	}

	return &Store{path: path, passphrase: passphrase, lock: lock}, nil
}

// Close releases the file lock. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("store: release lock: %w", err)
	}
	return nil
}

// Get returns the decrypted record graph, or (nil, nil) when the store has
// never been created.
func (s *Store) Get() (*record.Graph, error) {
	if s.closed {
		return nil, ErrClosed
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("store: decode envelope: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("store: unsupported envelope version %d", env.Version)
	}
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("store: decode salt: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("store: decode data: %w", err)
	}

	plaintext, err := unseal(deriveKey(s.passphrase, salt), data)
	if err != nil {
		return nil, err
	}

	var g record.Graph
	if err := json.Unmarshal(plaintext, &g); err != nil {
		return nil, fmt.Errorf("store: decode graph: %w", err)
	}
	return &g, nil
}

// Create initializes an empty store. It is idempotent: when a store already
// exists its current graph is returned unchanged.
func (s *Store) Create() (*record.Graph, error) {
	g, err := s.Get()
	if err != nil {
		return nil, err
	}
	if g != nil {
		return g, nil
	}
	g = &record.Graph{UpdatedAt: time.Now().UTC()}
	if err := s.save(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Store) AddLabResult(lr record.LabResult) (*record.LabResult, error) {
	var out *record.LabResult
	err := s.mutate(func(g *record.Graph) {
		lr.ID = uuid.NewString()
		g.LabResults = append(g.LabResults, lr)
		out = &g.LabResults[len(g.LabResults)-1]
	})
	return out, err
}

func (s *Store) AddMedication(m record.Medication) (*record.Medication, error) {
	var out *record.Medication
	err := s.mutate(func(g *record.Graph) {
		m.ID = uuid.NewString()
		g.Medications = append(g.Medications, m)
		out = &g.Medications[len(g.Medications)-1]
	})
	return out, err
}

func (s *Store) AddCondition(c record.Condition) (*record.Condition, error) {
	var out *record.Condition
	err := s.mutate(func(g *record.Graph) {
		c.ID = uuid.NewString()
		g.Conditions = append(g.Conditions, c)
		out = &g.Conditions[len(g.Conditions)-1]
	})
	return out, err
}

func (s *Store) AddSymptom(sym record.Symptom) (*record.Symptom, error) {
	var out *record.Symptom
	err := s.mutate(func(g *record.Graph) {
		sym.ID = uuid.NewString()
		g.Symptoms = append(g.Symptoms, sym)
		out = &g.Symptoms[len(g.Symptoms)-1]
	})
	return out, err
}

// mutate loads the graph, applies fn, stamps updatedAt and persists. The
// store must already be initialized.
func (s *Store) mutate(fn func(g *record.Graph)) error {
	g, err := s.Get()
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNotInitialized
	}
	fn(g)
	g.UpdatedAt = time.Now().UTC()
	return s.save(g)
}

// save seals the graph under a fresh salt and replaces the store file
// atomically via a temp-file rename.
func (s *Store) save(g *record.Graph) error {
	if s.closed {
		return ErrClosed
	}
	plaintext, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("store: encode graph: %w", err)
	}
	salt, err := newSalt()
	if err != nil {
		return err
	}
	sealed, err := seal(deriveKey(s.passphrase, salt), plaintext)
	if err != nil {
		return err
	}
	env := envelope{
		Version: envelopeVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Data:    base64.StdEncoding.EncodeToString(sealed),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("store: encode envelope: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmp, err)
	}
	return nil
}
