package db

import (
	"bytes"
	"sort"
	"sync"
)

// MemDBProvider implements DatabaseProvider with an in-process map. It backs
// tests and the "memory" node backend; nothing survives a restart.
type MemDBProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemDBProvider creates an empty in-memory provider
func NewMemDBProvider() *MemDBProvider {
	return &MemDBProvider{data: make(map[string][]byte)}
}

// Get retrieves a value by key
func (p *MemDBProvider) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	value, ok := p.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

// Put stores a key-value pair
func (p *MemDBProvider) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete removes a key-value pair
func (p *MemDBProvider) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.data, string(key))
	return nil
}

// Has checks if a key exists
func (p *MemDBProvider) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.data[string(key)]
	return ok, nil
}

// Close is a no-op for the in-memory provider
func (p *MemDBProvider) Close() error {
	return nil
}

// Batch returns a new batch for atomic operations
func (p *MemDBProvider) Batch() DatabaseBatch {
	return &memBatch{provider: p}
}

// IteratePrefix iterates over all key-value pairs with the given prefix in
// key order
func (p *MemDBProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	p.mu.RLock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	p.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		value, err := p.Get([]byte(k))
		if err != nil {
			return err
		}
		if value == nil {
			continue // deleted between snapshot and read
		}
		if !callback([]byte(k), value) {
			break
		}
	}
	return nil
}

type memOp struct {
	key    string
	value  []byte
	delete bool
}

type memBatch struct {
	provider *MemDBProvider
	ops      []memOp
}

func (b *memBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memOp{key: string(key), value: append([]byte(nil), value...)})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{key: string(key), delete: true})
}

func (b *memBatch) Write() error {
	b.provider.mu.Lock()
	defer b.provider.mu.Unlock()

	for _, op := range b.ops {
		if op.delete {
			delete(b.provider.data, op.key)
			continue
		}
		b.provider.data[op.key] = op.value
	}
	return nil
}

func (b *memBatch) Reset() {
	b.ops = b.ops[:0]
}
