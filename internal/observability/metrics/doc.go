// Package metrics holds process-wide Prometheus metrics that do not belong
// to a single use case: the worker's HTTP endpoints and the inventory of
// stored listings and database connections.
//
// Use-case metrics (search, retry, recovery, report) live next to their
// packages.
package metrics
