package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("retrieval.top_k", 8))
	require.NoError(t, store.Set("retrieval.top_k", 12))

	val, ok := store.Get("retrieval.top_k")
	assert.True(t, ok)
	assert.Equal(t, 12, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_KeepsValueTypes(t *testing.T) {
	store := NewConfigStore()
	users := []string{"alice:pw:admin"}
	require.NoError(t, store.Set("server.users", users))
	require.NoError(t, store.Set("retrieval.dedup_threshold", 0.85))

	v, _ := store.Get("server.users")
	assert.Equal(t, users, v)
	v, _ = store.Get("retrieval.dedup_threshold")
	assert.IsType(t, float64(0), v)
}

func TestConfigStore_Path(t *testing.T) {
	assert.Equal(t, ":memory:", NewConfigStore().Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("counter", n)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Get("counter")
		}()
	}
	wg.Wait()

	_, ok := store.Get("counter")
	assert.True(t, ok)
}
