package storage

import (
	"context"
	"sort"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/google/uuid"

	"github.com/user/textrsa/pkg/textbook"
)

type StoredKey struct {
	ID          string
	Bits        int
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	BenchmarkID string
	Public      *textbook.PublicKey
	private     *textbook.PrivateKey
}

// Private returns the private half. It is kept out of the exported fields so that
// encoding a StoredKey never leaks d.
func (k *StoredKey) Private() *textbook.PrivateKey {
	return k.private
}

// KeyStore holds generated key pairs in memory, optionally expiring them.
type KeyStore struct {
	keys *cache.Cache[string, *StoredKey]
	ttl  time.Duration
}

// NewKeyStore returns a store whose expiry janitor stops when ctx is done. A zero
// ttl keeps keys until they are deleted.
func NewKeyStore(ctx context.Context, ttl time.Duration) *KeyStore {
	return &KeyStore{
		keys: cache.NewContext[string, *StoredKey](ctx),
		ttl:  ttl,
	}
}

func (ks *KeyStore) Store(pub *textbook.PublicKey, priv *textbook.PrivateKey, bits int, benchmarkID string) *StoredKey {
	now := time.Now()
	key := &StoredKey{
		ID:          uuid.New().String(),
		Bits:        bits,
		CreatedAt:   now,
		BenchmarkID: benchmarkID,
		Public:      pub,
		private:     priv,
	}

	if ks.ttl > 0 {
		expires := now.Add(ks.ttl)
		key.ExpiresAt = &expires
		ks.keys.Set(key.ID, key, cache.WithExpiration(ks.ttl))
	} else {
		ks.keys.Set(key.ID, key)
	}
	return key
}

func (ks *KeyStore) GetKey(id string) (*StoredKey, bool) {
	return ks.keys.Get(id)
}

func (ks *KeyStore) GetKeysByBenchmark(benchmarkID string) []*StoredKey {
	var keys []*StoredKey
	for _, key := range ks.GetAllKeys() {
		if key.BenchmarkID == benchmarkID {
			keys = append(keys, key)
		}
	}
	return keys
}

// GetAllKeys returns live keys, oldest first.
func (ks *KeyStore) GetAllKeys() []*StoredKey {
	ids := ks.keys.Keys()
	keys := make([]*StoredKey, 0, len(ids))
	for _, id := range ids {
		if key, ok := ks.keys.Get(id); ok {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
	return keys
}

// DeleteKey reports whether a live key was removed.
func (ks *KeyStore) DeleteKey(id string) bool {
	_, ok := ks.keys.Get(id)
	ks.keys.Delete(id)
	return ok
}

func (ks *KeyStore) Count() int {
	return len(ks.GetAllKeys())
}
