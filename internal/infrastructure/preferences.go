package infrastructure

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Preference keys
const (
	KeyTheme     = "theme"
	KeyFavorites = "favoriteMovieIds"
)

// PreferenceBackend persists raw preference values, one namespace per visitor
type PreferenceBackend interface {
	Load(ctx context.Context, namespace, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, namespace, key string, value []byte) error
	Close() error
}

// Preference is a typed value stored as JSON text under a fixed key.
// Values that are missing or cannot be decoded read as the default.
type Preference[T any] struct {
	backend PreferenceBackend
	key     string
	def     T

	updateMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[int]func(namespace string, value T)
	nextID int
}

// NewPreference creates a preference stored under key
func NewPreference[T any](backend PreferenceBackend, key string, def T) *Preference[T] {
	return &Preference[T]{
		backend: backend,
		key:     key,
		def:     def,
		subs:    make(map[int]func(string, T)),
	}
}

// Get returns the stored value, or the default if it is missing or corrupt
func (p *Preference[T]) Get(ctx context.Context, namespace string) T {
	raw, found, err := p.backend.Load(ctx, namespace, p.key)
	if err != nil {
		log.Warn().Err(err).Str("key", p.key).Str("namespace", namespace).Msg("Could not load preference, using default")
		return p.def
	}
	if !found {
		return p.def
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		log.Debug().Err(err).Str("key", p.key).Str("namespace", namespace).Msg("Corrupt preference, using default")
		return p.def
	}
	return value
}

// Set replaces the stored value and notifies the subscribers
func (p *Preference[T]) Set(ctx context.Context, namespace string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := p.backend.Save(ctx, namespace, p.key, raw); err != nil {
		return err
	}
	p.notify(namespace, value)
	return nil
}

// Update applies fn to the stored value and stores the result.
// Updates are serialized so that concurrent read-modify-write cycles never lose a write.
func (p *Preference[T]) Update(ctx context.Context, namespace string, fn func(T) T) (T, error) {
	p.updateMu.Lock()
	defer p.updateMu.Unlock()

	value := fn(p.Get(ctx, namespace))
	if err := p.Set(ctx, namespace, value); err != nil {
		return value, err
	}
	return value, nil
}

// Subscribe registers fn to be called after every successful Set.
// The returned function removes the subscription.
func (p *Preference[T]) Subscribe(fn func(namespace string, value T)) (unsubscribe func()) {
	p.subsMu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.subsMu.Unlock()

	return func() {
		p.subsMu.Lock()
		delete(p.subs, id)
		p.subsMu.Unlock()
	}
}

func (p *Preference[T]) notify(namespace string, value T) {
	p.subsMu.RLock()
	defer p.subsMu.RUnlock()
	for _, fn := range p.subs {
		fn(namespace, value)
	}
}

// MemoryStore is a PreferenceBackend that keeps everything in memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (ms *MemoryStore) Load(_ context.Context, namespace, key string) ([]byte, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	value, ok := ms.values[namespace+"/"+key]
	return value, ok, nil
}

func (ms *MemoryStore) Save(_ context.Context, namespace, key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[namespace+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
