package storage

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/textrsa/pkg/textbook"
)

func vectorKeys() (*textbook.PublicKey, *textbook.PrivateKey) {
	n := big.NewInt(3233)
	return &textbook.PublicKey{E: big.NewInt(17), N: n}, &textbook.PrivateKey{D: big.NewInt(2753), N: n}
}

func TestKeyStoreLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ks := NewKeyStore(ctx, 0)

	pub, priv := vectorKeys()
	stored := ks.Store(pub, priv, 6, "")
	require.NotEmpty(t, stored.ID)
	assert.Nil(t, stored.ExpiresAt)

	got, ok := ks.GetKey(stored.ID)
	require.True(t, ok)
	assert.Same(t, stored, got)
	assert.Equal(t, int64(2753), got.Private().D.Int64())
	assert.Equal(t, 1, ks.Count())

	assert.True(t, ks.DeleteKey(stored.ID))
	assert.False(t, ks.DeleteKey(stored.ID))
	_, ok = ks.GetKey(stored.ID)
	assert.False(t, ok)
	assert.Zero(t, ks.Count())
}

func TestKeyStoreOrderingAndBenchmarkFilter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ks := NewKeyStore(ctx, 0)

	pub, priv := vectorKeys()
	first := ks.Store(pub, priv, 6, "bench-1")
	time.Sleep(time.Millisecond)
	second := ks.Store(pub, priv, 6, "")
	time.Sleep(time.Millisecond)
	third := ks.Store(pub, priv, 6, "bench-1")

	all := ks.GetAllKeys()
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	bench := ks.GetKeysByBenchmark("bench-1")
	require.Len(t, bench, 2)
	assert.Equal(t, first.ID, bench[0].ID)
	assert.Equal(t, third.ID, bench[1].ID)
}

func TestKeyStoreExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ks := NewKeyStore(ctx, 20*time.Millisecond)

	pub, priv := vectorKeys()
	stored := ks.Store(pub, priv, 6, "")
	require.NotNil(t, stored.ExpiresAt)

	_, ok := ks.GetKey(stored.ID)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = ks.GetKey(stored.ID)
	assert.False(t, ok)
	assert.Empty(t, ks.GetAllKeys())
}

func TestStoredKeyEncodingOmitsPrivateExponent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ks := NewKeyStore(ctx, 0)

	pub, priv := vectorKeys()
	stored := ks.Store(pub, priv, 6, "")

	raw, err := json.Marshal(stored)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"d"`)
	assert.NotContains(t, string(raw), "private")
}
