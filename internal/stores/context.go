package stores

import "context"

type contextKey struct{}

func withStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// StoreFromContext returns the store loaded by RequireStoreAccess.
func StoreFromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(contextKey{}).(*Store)
	return s, ok && s != nil
}
