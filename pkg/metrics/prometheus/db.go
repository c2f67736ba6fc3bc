package prometheus

import (
	"database/sql"

	"github.com/marmos91/botkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RegisterDBStats exports connection pool statistics for db under the
// given name. No-op when metrics are disabled.
func RegisterDBStats(db *sql.DB, name string) error {
	reg := metrics.GetRegistry()
	if reg == nil || db == nil {
		return nil
	}
	return reg.Register(collectors.NewDBStatsCollector(db, name))
}
