package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sahilchouksey/post-views-api/utils/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memOptionCache is an in-memory OptionCache fake
type memOptionCache struct {
	docs    map[string][]byte
	deleted []string
}

func newMemOptionCache() *memOptionCache {
	return &memOptionCache{docs: make(map[string][]byte)}
}

func (m *memOptionCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.docs[key]
	if !ok {
		return cache.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *memOptionCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.docs[key] = raw
	return nil
}

func (m *memOptionCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.docs, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *memOptionCache) seed(t *testing.T, name string, doc map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	m.docs[optionCacheKey(name)] = raw
}

func TestStoreGetServesCachedDocument(t *testing.T) {
	mem := newMemOptionCache()
	mem.seed(t, optionPrefix+GroupGeneral, map[string]interface{}{
		"counter_mode": "js",
	})

	// a nil gorm handle proves the cached read never reaches Postgres
	store := NewCachedStore(nil, mem)

	doc, err := store.Get(context.Background(), optionPrefix+GroupGeneral)
	require.NoError(t, err)
	assert.Equal(t, "js", doc["counter_mode"])
}

func TestRegistryValuesReadThroughCache(t *testing.T) {
	mem := newMemOptionCache()
	mem.seed(t, optionPrefix+GroupGeneral, map[string]interface{}{
		"counter_mode": "php",
	})

	r := NewRegistry(NewCachedStore(nil, mem))

	values, err := r.Values(context.Background(), GroupGeneral)
	require.NoError(t, err)

	// cached document merges over compiled defaults
	assert.Equal(t, "php", values["counter_mode"])
	assert.Equal(t, 1440, values["time_between_counts"])
}

func TestStoreCacheKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "pvc:option:post_views_settings_general",
		optionCacheKey(optionPrefix+GroupGeneral))
}
