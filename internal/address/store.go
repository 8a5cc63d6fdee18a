package address

func NewCacheStore() CacheStore {
	return NewMemCacheStore()
}
