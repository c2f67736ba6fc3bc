package store

import (
	"context"
	"fmt"
)

// ============================================
// HEALTH & LIFECYCLE
// ============================================

func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool. Only the owner of the store calls it.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

// Stats returns connection pool statistics for the metrics collector.
func (s *GORMStore) Stats() (open, inUse, idle int) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return 0, 0, 0
	}
	st := sqlDB.Stats()
	return st.OpenConnections, st.InUse, st.Idle
}

// Compile-time interface checks
var _ Store = (*GORMStore)(nil)
