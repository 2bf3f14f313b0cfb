package generator

import (
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

// InsertedKeys maps table name to the primary keys inserted for it in this run,
// in the order the database returned them. Tables are appended to once their
// batch loop finishes; generators for later tables only read.
type InsertedKeys struct {
	mu   sync.RWMutex
	keys map[string][]any
}

// NewInsertedKeys creates an empty key store.
func NewInsertedKeys() *InsertedKeys {
	return &InsertedKeys{keys: make(map[string][]any)}
}

// Append adds keys for a table.
func (k *InsertedKeys) Append(table string, keys ...any) {
	if len(keys) == 0 {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[table] = append(k.keys[table], keys...)
}

// Keys returns a copy of a table's keys.
func (k *InsertedKeys) Keys(table string) []any {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]any(nil), k.keys[table]...)
}

// Len returns how many keys a table has.
func (k *InsertedKeys) Len(table string) int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys[table])
}

// Pick samples one key of a table. ok is false when the table has none.
func (k *InsertedKeys) Pick(table string, sampler KeySampler) (key any, ok bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := k.keys[table]
	if len(keys) == 0 {
		return nil, false
	}
	return sampler.Sample(keys), true
}

// KeySampler chooses which referenced key a foreign-key column receives.
// Implementations are called with a non-empty slice they must not retain.
type KeySampler interface {
	Sample(keys []any) any
}

// UniformSampler picks every key with equal probability.
type UniformSampler struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewUniformSampler creates a sampler. A zero seed draws a random one.
func NewUniformSampler(seed uint64) *UniformSampler {
	return &UniformSampler{faker: gofakeit.New(seed)}
}

func (s *UniformSampler) Sample(keys []any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return keys[s.faker.IntRange(0, len(keys)-1)]
}
