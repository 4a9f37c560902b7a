package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMalformedDocument is returned when the knowledge file parses but lacks required sections.
var ErrMalformedDocument = errors.New("knowledge: malformed document")

// Base is the loaded, read-only knowledge base. Safe for concurrent readers.
type Base struct {
	doc    Document
	byID   map[string]int
	byName map[string]int
}

// Load reads and indexes the knowledge document at path.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse indexes a knowledge document already in memory.
func Parse(data []byte) (*Base, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("knowledge: parse: %w", err)
	}
	for _, key := range []string{"hospital", "doctor_profiles", "specialties_and_conditions"} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformedDocument, key)
		}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("knowledge: parse: %w", err)
	}
	return New(doc)
}

// New indexes an in-memory document.
func New(doc Document) (*Base, error) {
	b := &Base{
		doc:    doc,
		byID:   make(map[string]int, len(doc.Doctors)),
		byName: make(map[string]int, len(doc.Doctors)),
	}
	for i, d := range doc.Doctors {
		if strings.TrimSpace(d.DoctorID) == "" || strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: doctor at index %d needs doctor_id and name", ErrMalformedDocument, i)
		}
		if _, dup := b.byID[d.DoctorID]; dup {
			return nil, fmt.Errorf("%w: duplicate doctor_id %q", ErrMalformedDocument, d.DoctorID)
		}
		b.byID[d.DoctorID] = i
		key := strings.ToLower(d.Name)
		if _, seen := b.byName[key]; !seen {
			b.byName[key] = i
		}
	}
	for si := range b.doc.Specialties {
		s := &b.doc.Specialties[si]
		for ci := range s.Conditions {
			s.Conditions[ci].Specialty = s.Name
		}
	}
	return b, nil
}

// DoctorByID returns the doctor with the given id.
func (b *Base) DoctorByID(id string) (Doctor, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Doctor{}, false
	}
	return b.doc.Doctors[i], true
}

// DoctorByName matches the full name case-insensitively.
func (b *Base) DoctorByName(name string) (Doctor, bool) {
	i, ok := b.byName[strings.ToLower(name)]
	if !ok {
		return Doctor{}, false
	}
	return b.doc.Doctors[i], true
}

// DoctorsBySpecialty returns every doctor whose specialty matches case-insensitively.
// The result is empty, never nil, when nothing matches.
func (b *Base) DoctorsBySpecialty(specialty string) []Doctor {
	out := []Doctor{}
	for _, d := range b.doc.Doctors {
		if strings.EqualFold(d.Specialty, specialty) {
			out = append(out, d)
		}
	}
	return out
}

// SpecialtyInfo looks a specialty up by name, case-insensitively.
func (b *Base) SpecialtyInfo(name string) (Specialty, bool) {
	for _, s := range b.doc.Specialties {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Specialty{}, false
}

// HospitalInfo returns the hospital record.
func (b *Base) HospitalInfo() Hospital {
	return b.doc.Hospital
}

// AllDoctors returns every doctor profile in document order.
func (b *Base) AllDoctors() []Doctor {
	out := make([]Doctor, len(b.doc.Doctors))
	copy(out, b.doc.Doctors)
	return out
}

// Specialties returns every specialty in document order.
func (b *Base) Specialties() []Specialty {
	out := make([]Specialty, len(b.doc.Specialties))
	copy(out, b.doc.Specialties)
	return out
}

// Info returns the published document counts, if the file carried them.
func (b *Base) Info() (DocumentInfo, bool) {
	if b.doc.DocumentInfo == nil {
		return DocumentInfo{}, false
	}
	return *b.doc.DocumentInfo, true
}
