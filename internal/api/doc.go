// Package api hosts the operator HTTP server that runs beside a batch.
// Routes:
//   - GET /healthz for liveness probes.
//   - GET /status for the counts of the running batch.
//   - GET /metrics for Prometheus scraping.
package api
