// Package api implements the HTTP surface the demo server hosts alongside
// the object model: a liveness/readiness pair and the Prometheus scrape
// endpoint, adapted from the teacher's pkg/api/health.go. The object model
// has no cluster leadership or raft state to report on, so readiness here
// reduces to "the engine opened and a scan against it succeeds".
package api
