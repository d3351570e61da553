package repository

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithArchivedVersions bounds how many archived versions each leaderboard
// keeps; the oldest are dropped first.
func WithArchivedVersions(n int) Option {
	return func(s *TreapStore) {
		if n > 0 {
			s.maxArchived = n
		}
	}
}

// WithSeed makes treap priorities deterministic.
func WithSeed(seed uint64) Option {
	return func(s *TreapStore) {
		s.seed = seed
	}
}
