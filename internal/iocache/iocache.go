package iocache

import (
	"sync"

	"github.com/huangsam/precache/internal/contract"
)

// CacheStoreManager holds the bucket store and the lifecycle history store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	cache        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wraps already opened stores.
func NewCacheStoreManager(cache contract.CacheStore, history contract.HistoryStore) *CacheStoreManager {
	return &CacheStoreManager{cache: cache, history: history}
}

// GetCacheStore returns the bucket store.
func (mgr *CacheStoreManager) GetCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.cache
}

// GetHistoryStore returns the lifecycle history store.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
