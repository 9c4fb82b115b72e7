// Package metrics exposes Prometheus collectors for media server lifecycles.
package metrics
