package core

import (
	"fmt"

	"dlcinst/internal/domain"
)

// Registry holds the program selections of the current session. Exactly
// one selection exists per (platform, id). It is not safe for concurrent
// mutation; the Runner is its only writer while a run is in progress.
type Registry struct {
	selections []*domain.ProgramSelection
	index      map[domain.SelectionKey]*domain.ProgramSelection
}

// NewRegistry creates a registry holding sels
func NewRegistry(sels ...*domain.ProgramSelection) (*Registry, error) {
	r := &Registry{index: make(map[domain.SelectionKey]*domain.ProgramSelection)}
	for _, s := range sels {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a selection
func (r *Registry) Add(sel *domain.ProgramSelection) error {
	key := sel.Key()
	if _, ok := r.index[key]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSelection, key)
	}
	r.index[key] = sel
	r.selections = append(r.selections, sel)
	return nil
}

// Get looks a selection up by platform and id
func (r *Registry) Get(platform domain.Platform, id string) (*domain.ProgramSelection, error) {
	sel, ok := r.index[domain.SelectionKey{Platform: platform, ID: id}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrSelectionNotFound, platform, id)
	}
	return sel, nil
}

// Find returns every selection with the given id, on any platform
func (r *Registry) Find(id string) []*domain.ProgramSelection {
	var found []*domain.ProgramSelection
	for _, s := range r.selections {
		if s.ID == id {
			found = append(found, s)
		}
	}
	return found
}

// Remove drops a selection
func (r *Registry) Remove(platform domain.Platform, id string) error {
	key := domain.SelectionKey{Platform: platform, ID: id}
	if _, ok := r.index[key]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSelectionNotFound, key)
	}
	delete(r.index, key)
	for i, s := range r.selections {
		if s.Key() == key {
			r.selections = append(r.selections[:i], r.selections[i+1:]...)
			break
		}
	}
	return nil
}

// Replace swaps the whole selection set, e.g. after a new discovery pass.
// The registry is left unchanged when sels contains duplicates.
func (r *Registry) Replace(sels []*domain.ProgramSelection) error {
	fresh, err := NewRegistry(sels...)
	if err != nil {
		return err
	}
	*r = *fresh
	return nil
}

// All returns every selection in insertion order
func (r *Registry) All() []*domain.ProgramSelection {
	out := make([]*domain.ProgramSelection, len(r.selections))
	copy(out, r.selections)
	return out
}

// Enabled returns the selections taking part in the next run, in insertion order
func (r *Registry) Enabled() []*domain.ProgramSelection {
	var out []*domain.ProgramSelection
	for _, s := range r.selections {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of selections
func (r *Registry) Len() int {
	return len(r.selections)
}
