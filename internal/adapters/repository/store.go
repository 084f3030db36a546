// Package repository persists pipeline outputs as structured JSON
// documents consumed by downstream tooling. The top-level key names are an
// external contract.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tourmint/tourmint/internal/domain/model"
	"github.com/tourmint/tourmint/internal/domain/validate"
)

// Document file names inside the store directory.
const (
	participantsFile = "participants.json"
	buildersFile     = "builders.json"
	reviewFile       = "review.json"
	reportFile       = "validation-report.json"
)

// Store reads and writes pipeline documents under a base directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating it when missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string { return s.dir }

type participantsDoc struct {
	Participants []model.Participant `json:"participants"`
}

type buildersDoc struct {
	Builders []model.Builder `json:"builders"`
}

type reviewDoc struct {
	Review []model.ReviewCandidate `json:"review"`
}

// SaveParticipants writes the consolidated participant list.
func (s *Store) SaveParticipants(_ context.Context, participants []model.Participant) error {
	return s.writeDoc(participantsFile, participantsDoc{Participants: participants})
}

// LoadParticipants reads the consolidated participant list.
func (s *Store) LoadParticipants(_ context.Context) ([]model.Participant, error) {
	var doc participantsDoc
	if err := s.readDoc(participantsFile, &doc); err != nil {
		return nil, err
	}
	return doc.Participants, nil
}

// SaveBuilders writes the builder list, each entry carrying
// transactionCount and firstTx.
func (s *Store) SaveBuilders(_ context.Context, builders []model.Builder) error {
	return s.writeDoc(buildersFile, buildersDoc{Builders: builders})
}

// LoadBuilders reads the builder list.
func (s *Store) LoadBuilders(_ context.Context) ([]model.Builder, error) {
	var doc buildersDoc
	if err := s.readDoc(buildersFile, &doc); err != nil {
		return nil, err
	}
	return doc.Builders, nil
}

// SaveReview writes the human-review queue.
func (s *Store) SaveReview(_ context.Context, review []model.ReviewCandidate) error {
	return s.writeDoc(reviewFile, reviewDoc{Review: review})
}

// SaveReport writes the validation report.
func (s *Store) SaveReport(_ context.Context, report validate.Report) error {
	return s.writeDoc(reportFile, report)
}

// writeDoc marshals v and writes it atomically (tmp + rename).
func (s *Store) writeDoc(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	data = append(data, '\n')

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *Store) readDoc(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	return nil
}
