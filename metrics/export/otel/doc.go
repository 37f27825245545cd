// Package otel publishes authcore engine metrics through an OpenTelemetry
// meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per latency bucket, all fed by a single
// callback that reads [authcore.Engine.MetricsSnapshot] on each collection.
// The caller owns the MeterProvider.
package otel
