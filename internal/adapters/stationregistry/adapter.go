// Package stationregistry reads police station records from the legacy
// CCTNS registry, which still lives on SQL Server. The adapter is
// read-only: the registry stays the system of record for stations.
package stationregistry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver

	"github.com/nyayasetu/platform/internal/shared/config"
	"github.com/nyayasetu/platform/internal/shared/errors"
	"github.com/nyayasetu/platform/internal/workflow"
)

const cacheTTL = 5 * time.Minute

type cachedStation struct {
	station   workflow.Station
	fetchedAt time.Time
}

// Adapter implements workflow.StationDirectory against the CCTNS
// registry. Lookups are cached: station records change rarely and the
// registry link is the slowest dependency the workflow touches.
type Adapter struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]cachedStation
}

// New opens the registry connection and verifies it.
func New(ctx context.Context, cfg config.StationRegistryConfig) (*Adapter, error) {
	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open station registry: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping station registry: %w", err)
	}

	return &Adapter{db: db, cache: make(map[string]cachedStation)}, nil
}

// Lookup resolves a station code. Unknown codes return NotFound.
func (a *Adapter) Lookup(ctx context.Context, code string) (*workflow.Station, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.NotFound("station", code)
	}

	a.mu.RLock()
	cached, ok := a.cache[code]
	a.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < cacheTTL {
		st := cached.station
		return &st, nil
	}

	var st workflow.Station
	err := a.db.QueryRowContext(ctx, `
		SELECT station_code, station_name, district, state_name, is_active
		FROM dbo.PoliceStations
		WHERE station_code = @p1`,
		code,
	).Scan(&st.Code, &st.Name, &st.District, &st.State, &st.Active)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("station", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "station registry query failed")
	}

	a.mu.Lock()
	a.cache[code] = cachedStation{station: st, fetchedAt: time.Now()}
	a.mu.Unlock()

	return &st, nil
}

// Health pings the registry.
func (a *Adapter) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close releases the registry connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}
