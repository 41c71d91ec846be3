package store

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"tokend/db"
)

// AllowanceStore persists the (owner, spender) -> remaining allowance table.
type AllowanceStore interface {
	Set(owner, spender string, amount *uint256.Int) error
	Get(owner, spender string) (*uint256.Int, error)
}

type GenericAllowanceStore struct {
	mu         sync.RWMutex
	dbProvider db.DatabaseProvider
}

func NewGenericAllowanceStore(dbProvider db.DatabaseProvider) (*GenericAllowanceStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	return &GenericAllowanceStore{
		dbProvider: dbProvider,
	}, nil
}

// Set overwrites the remaining allowance owner has granted spender. A zero
// amount deletes the record instead of storing an empty entry.
func (s *GenericAllowanceStore) Set(owner, spender string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.getDbKey(owner, spender)
	if amount == nil || amount.IsZero() {
		if err := s.dbProvider.Delete(key); err != nil {
			return fmt.Errorf("failed to delete allowance: %w", err)
		}
		return nil
	}

	if err := s.dbProvider.Put(key, []byte(amount.Dec())); err != nil {
		return fmt.Errorf("failed to write allowance to db: %w", err)
	}
	return nil
}

// Get returns the remaining allowance, zero when no record exists
func (s *GenericAllowanceStore) Get(owner, spender string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.dbProvider.Get(s.getDbKey(owner, spender))
	if err != nil {
		return nil, fmt.Errorf("could not get allowance from db: %w", err)
	}
	if data == nil {
		return uint256.NewInt(0), nil
	}

	amount, err := uint256.FromDecimal(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored allowance: %w", err)
	}
	return amount, nil
}

func (s *GenericAllowanceStore) getDbKey(owner, spender string) []byte {
	return []byte(PrefixAllowance + owner + "|" + spender)
}
