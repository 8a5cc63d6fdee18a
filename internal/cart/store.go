package cart

func NewCountStore() CountStore {
	return NewMemCountStore()
}
