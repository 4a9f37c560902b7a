package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists appointments. The Service serializes mutations within a
// process; stores reject a second confirmed appointment for the same doctor,
// date and time so writers in other processes cannot double-book.
type Store interface {
	List(ctx context.Context) ([]Appointment, error)
	Insert(ctx context.Context, a Appointment) error
	Update(ctx context.Context, a Appointment) error
}

type fileDocument struct {
	Appointments []Appointment `json:"appointments"`
}

// FileStore keeps appointments in a JSON file shaped {"appointments":[...]}.
// Every write replaces the file atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() ([]Appointment, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Appointment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: read %s: %w", s.path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("appointments: parse %s: %w", s.path, err)
	}
	if doc.Appointments == nil {
		doc.Appointments = []Appointment{}
	}
	return doc.Appointments, nil
}

func (s *FileStore) save(list []Appointment) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("appointments: create dir: %w", err)
	}
	data, err := json.MarshalIndent(fileDocument{Appointments: list}, "", "  ")
	if err != nil {
		return fmt.Errorf("appointments: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".appointments-*.json")
	if err != nil {
		return fmt.Errorf("appointments: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("appointments: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("appointments: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("appointments: replace file: %w", err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) Insert(_ context.Context, a Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load()
	if err != nil {
		return err
	}
	for _, b := range list {
		if conflicts(a, b) {
			return errSlotTaken(a)
		}
	}
	return s.save(append(list, a))
}

func (s *FileStore) Update(_ context.Context, a Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load()
	if err != nil {
		return err
	}
	idx := -1
	for i := range list {
		if list[i].ID == a.ID {
			idx = i
		} else if conflicts(a, list[i]) {
			return errSlotTaken(a)
		}
	}
	if idx < 0 {
		return errNotFound()
	}
	list[idx] = a
	return s.save(list)
}
