// Package dialect defines the driver contract between the query builder and
// a graph backend, and the middleware drivers composed around it.
//
// # Driver Interface
//
//	type Driver interface {
//	    Execute(ctx context.Context, query string, params map[string]any) ([]Row, error)
//	}
//
// A driver runs one compiled statement in one round trip and returns the
// rows keyed by column name. Node and edge columns hold the property map of
// the entity. Backend errors are returned as is.
//
// The query builder attaches the compiled Statement to the context, so
// middleware can tell reads from writes and see the labels and store:
//
//	s, ok := dialect.FromContext(ctx)
//
// # Middleware
//
//	dialect.Debug(drv, logger)            // slog debug logging
//	dialect.NewStatsDriver(drv, opts...)  // counters and slow statement hook
//	dialect.Metrics(drv, registry)        // Prometheus collectors
//	dialect.Trace(drv, opts...)           // OpenTelemetry spans
//	dialect.Cached(drv, cache, opts...)   // cached reads, invalidated by writes
//
// # Sub-packages
//
//   - dialect/age: Apache AGE on PostgreSQL through database/sql
//   - dialect/bolt: Neo4j through the Bolt protocol
package dialect
