package store

import (
	"fmt"

	"tokend/config"
	"tokend/db"
)

// BackendType represents the type of database backend
type BackendType string

const (
	// LevelDBBackend uses the LevelDB implementation
	LevelDBBackend BackendType = "leveldb"

	// BoltBackend uses the bbolt implementation
	BoltBackend BackendType = "bolt"

	// MemoryBackend keeps everything in process memory (tests, dev)
	MemoryBackend BackendType = "memory"
)

// NewProvider creates the database provider selected by the [db] config
// section
func NewProvider(cfg *config.DBConfig) (db.DatabaseProvider, error) {
	switch BackendType(cfg.Backend) {
	case LevelDBBackend:
		return db.NewLevelDBProvider(cfg.Directory)
	case BoltBackend:
		return db.NewBoltProvider(cfg.Directory)
	case MemoryBackend:
		return db.NewMemDBProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported db backend: %s", cfg.Backend)
	}
}
