// Package projectstore adapts the remote project API to a flat
// get/set/remove surface, hiding the create-versus-update distinction
// behind one upsert operation.
package projectstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/models"
	"github.com/voss/atelier/internal/remote"
)

// Store is the remote entity adapter for projects. Writes to the same
// project id are serialized behind a per-id lock, so two concurrent
// upserts of a new id cannot both observe "not found" and both create.
type Store struct {
	api remote.API

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a project store over the given API.
func New(api remote.API) *Store {
	return &Store{api: api, locks: make(map[string]*sync.Mutex)}
}

// Get fetches one project record, or apperr.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*models.ProjectRecord, error) {
	return s.api.GetProject(ctx, id)
}

// Set upserts a project: a get decides between create and update. The
// remote only exposes distinct create/update endpoints, so the upsert
// is a two-step check-then-act, made safe by the per-id lock.
func (s *Store) Set(ctx context.Context, rec *models.ProjectRecord) error {
	unlock := s.lock(rec.ID)
	defer unlock()

	_, err := s.api.GetProject(ctx, rec.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return s.api.CreateProject(ctx, rec)
	case err != nil:
		return fmt.Errorf("projectstore: probe %s: %w", rec.ID, err)
	default:
		return s.api.UpdateProject(ctx, rec)
	}
}

// Remove deletes a project. Absent-on-delete is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()
	return s.api.DeleteProject(ctx, id)
}

// List returns every project id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	recs, err := s.api.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids, nil
}

// LoadAll returns every project record.
func (s *Store) LoadAll(ctx context.Context) ([]models.ProjectRecord, error) {
	return s.api.ListProjects(ctx)
}

// Clear enumerates all project ids and removes them one by one. The
// sweep is neither atomic nor transactional; per-id failures are
// aggregated and the rest of the sweep continues.
func (s *Store) Clear(ctx context.Context) error {
	ids, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("projectstore: clear: %w", err)
	}
	var errs []error
	for _, id := range ids {
		if err := s.Remove(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("projectstore: clear %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// lock acquires the mutex for id, creating it on first use, and
// returns the release function.
func (s *Store) lock(id string) func() {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
