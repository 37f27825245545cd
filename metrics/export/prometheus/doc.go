// Package prometheus renders authcore engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps an [authcore.Engine] and exposes an
// [http.Handler] for mounting on /metrics. Counters are named
// authcore_*_total; the single histogram is
// authcore_authenticate_latency_seconds. Nothing is registered globally.
package prometheus
