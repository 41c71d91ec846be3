package store

import (
	"fmt"
	"sync"

	"tokend/db"
	"tokend/jsonx"
	"tokend/types"
)

// StateStore persists the administrative token state (owner, fee collector,
// freeze flag, total supply) under a single well-known key. This is
// intentionally separate from per-account data.
type StateStore interface {
	Store(state *types.TokenState) error
	StageTo(batch db.DatabaseBatch, state *types.TokenState) error
	Get() (*types.TokenState, error)
}

type GenericStateStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericStateStore(dbProvider db.DatabaseProvider) (*GenericStateStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericStateStore{
		dbProvider: dbProvider,
	}, nil
}

func (s *GenericStateStore) Store(state *types.TokenState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := jsonx.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal token state: %w", err)
	}

	if err := s.dbProvider.Put([]byte(KeyTokenState), data); err != nil {
		return fmt.Errorf("failed to write token state to db: %w", err)
	}
	return nil
}

// StageTo marshals state into an existing provider batch instead of writing
// it directly, so callers can commit it atomically with other records
func (s *GenericStateStore) StageTo(batch db.DatabaseBatch, state *types.TokenState) error {
	data, err := jsonx.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal token state: %w", err)
	}
	batch.Put([]byte(KeyTokenState), data)
	return nil
}

// Get returns the persisted token state, nil when the ledger has not been
// initialized yet
func (s *GenericStateStore) Get() (*types.TokenState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.dbProvider.Get([]byte(KeyTokenState))
	if err != nil {
		return nil, fmt.Errorf("could not get token state from db: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var state types.TokenState
	if err := jsonx.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token state: %w", err)
	}
	return &state, nil
}
