package cache

import (
	"encoding/json"
	"fmt"
	"time"

	ctyjson "github.com/zclconf/go-cty/cty/json"
	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("cache")

// BoltStore persists cache entries to a bbolt file so a long-running host
// process can reuse expensive operator results across restarts. Volatile
// (sensitive) entries never touch the file; they stay in an in-memory
// overlay.
type BoltStore struct {
	db  *bolt.DB
	mem *MemoryStore
}

type boltEntry struct {
	Value      json.RawMessage `json:"value"`
	Type       json.RawMessage `json:"type"`
	ComputedAt time.Time       `json:"computed_at"`
	TTL        time.Duration   `json:"ttl"`
}

// OpenBoltStore opens or creates the cache database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache database: %w", err)
	}
	return &BoltStore{db: db, mem: NewMemoryStore()}, nil
}

// Close releases the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get checks the in-memory overlay first, then the file.
func (s *BoltStore) Get(fingerprint string) (Entry, bool) {
	if e, ok := s.mem.Get(fingerprint); ok {
		return e, true
	}

	var raw []byte
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(cacheBucket).Get([]byte(fingerprint)); v != nil {
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if raw == nil {
		return Entry{}, false
	}

	var be boltEntry
	if err := json.Unmarshal(raw, &be); err != nil {
		return Entry{}, false
	}
	ty, err := ctyjson.UnmarshalType(be.Type)
	if err != nil {
		return Entry{}, false
	}
	val, err := ctyjson.Unmarshal(be.Value, ty)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Fingerprint: fingerprint,
		Value:       val,
		ComputedAt:  be.ComputedAt,
		TTL:         be.TTL,
	}, true
}

// Put writes the entry to the file, except volatile entries, which are kept
// in memory only.
func (s *BoltStore) Put(e Entry) {
	if e.Volatile {
		s.mem.Put(e)
		return
	}

	tyJSON, err := ctyjson.MarshalType(e.Value.Type())
	if err != nil {
		s.mem.Put(e)
		return
	}
	valJSON, err := ctyjson.Marshal(e.Value, e.Value.Type())
	if err != nil {
		s.mem.Put(e)
		return
	}
	raw, err := json.Marshal(boltEntry{
		Value:      valJSON,
		Type:       tyJSON,
		ComputedAt: e.ComputedAt,
		TTL:        e.TTL,
	})
	if err != nil {
		s.mem.Put(e)
		return
	}
	s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(e.Fingerprint), raw)
	})
}
