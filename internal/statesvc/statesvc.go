// Package statesvc implements the system-state store (C6): the
// singleton "active" state record, with history preserved and the
// optional file-mirror driven on every successful write.
package statesvc

import (
	"context"

	"github.com/shirokuma-kb/core/internal/kbtypes"
	"github.com/shirokuma-kb/core/internal/sqlitekv"
)

// Mirror is the subset of the file-mirror (C7) the state service
// drives.
type Mirror interface {
	MirrorState(state *kbtypes.SystemState)
}

// Service is the system-state store.
type Service struct {
	store  *sqlitekv.Store
	mirror Mirror
}

// New builds a Service. mirror may be nil when the file-mirror is not
// activated.
func New(store *sqlitekv.Store, mirror Mirror) *Service {
	return &Service{store: store, mirror: mirror}
}

// GetCurrentState returns the active state row, or nil if none exists
// yet.
func (s *Service) GetCurrentState(ctx context.Context) (*kbtypes.SystemState, error) {
	return s.store.GetCurrentState(ctx)
}

// UpdateCurrentState deactivates the previous active row, computes a
// fresh metrics snapshot, derives the summary, and inserts the new
// active row.
func (s *Service) UpdateCurrentState(ctx context.Context, p sqlitekv.UpdateCurrentStateParams) (*kbtypes.SystemState, error) {
	state, err := s.store.UpdateCurrentState(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.mirror != nil {
		s.mirror.MirrorState(state)
	}
	return state, nil
}
