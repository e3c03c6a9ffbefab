package dialect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// QueryStats holds statement execution statistics.
type QueryStats struct {
	// TotalReads is the number of read-only statements executed.
	TotalReads atomic.Int64
	// TotalWrites is the number of statements with write or delete clauses.
	TotalWrites atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// TotalRows is the number of rows returned.
	TotalRows atomic.Int64
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalReads:    s.TotalReads.Load(),
		TotalWrites:   s.TotalWrites.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		TotalRows:     s.TotalRows.Load(),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalReads.Store(0)
	s.TotalWrites.Store(0)
	s.TotalDuration.Store(0)
	s.TotalRows.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of statement statistics.
type StatsSnapshot struct {
	TotalReads    int64
	TotalWrites   int64
	TotalDuration time.Duration
	TotalRows     int64
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalReads + s.TotalWrites
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"reads=%d writes=%d rows=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalReads, s.TotalWrites, s.TotalRows, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, params map[string]any, duration time.Duration)

// StatsDriver wraps a Driver with statement statistics collection.
type StatsDriver struct {
	Driver
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	now           func() time.Time
	mu            sync.RWMutex
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the given logger, or to the
// default logger if nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, params map[string]any, duration time.Duration) {
		logger.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "params", params)
	})
}

// withClock replaces the time source, for tests.
func withClock(now func() time.Time) StatsOption {
	return func(s *StatsDriver) {
		s.now = now
	}
}

// NewStatsDriver wraps a Driver with statistics collection.
//
// Example:
//
//	drv := dialect.NewStatsDriver(bolt,
//	    dialect.WithSlowThreshold(200*time.Millisecond),
//	    dialect.WithSlowQueryLog(nil),
//	)
//
//	// Later, check statistics:
//	fmt.Println(drv.QueryStats().Stats())
func NewStatsDriver(drv Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Execute executes the statement and records statistics. Statements
// executed without a Statement in the context are counted as writes.
func (d *StatsDriver) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	start := d.now()
	rows, err := d.Driver.Execute(ctx, query, params)
	d.record(ctx, query, params, d.now().Sub(start), len(rows), err)
	return rows, err
}

func (d *StatsDriver) record(ctx context.Context, query string, params map[string]any, duration time.Duration, n int, err error) {
	if s, ok := FromContext(ctx); ok && s.ReadOnly {
		d.stats.TotalReads.Add(1)
	} else {
		d.stats.TotalWrites.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))
	d.stats.TotalRows.Add(int64(n))

	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, params, duration)
		}
	}
}

// DebugDriver wraps a Driver with debug logging.
type DebugDriver struct {
	Driver
	logger *slog.Logger
}

// Debug wraps the driver with a DebugDriver logging every statement at the
// debug level. A nil logger selects slog.Default.
func Debug(drv Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Execute logs the statement and executes it.
func (d *DebugDriver) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	d.logger.DebugContext(ctx, "cypher: execute", "query", query, "params", params)
	rows, err := d.Driver.Execute(ctx, query, params)
	if err != nil {
		d.logger.DebugContext(ctx, "cypher: execute failed", "query", query, "error", err)
		return nil, err
	}
	d.logger.DebugContext(ctx, "cypher: executed", "rows", len(rows))
	return rows, nil
}

// Ensure interfaces are implemented.
var (
	_ Driver = (*StatsDriver)(nil)
	_ Driver = (*DebugDriver)(nil)
	_ Driver = DriverFunc(nil)
)
