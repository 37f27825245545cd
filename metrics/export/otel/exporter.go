package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is satisfied by [authcore.Engine].
type MetricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	MailDropped() uint64
}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      authcore.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics as observable instruments on a
// caller-owned meter. Close unregisters the collection callback.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	mailDropped  metric.Int64ObservableCounter
}

func NewOTelExporter(meter metric.Meter, engine *authcore.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:     source,
		counters:   make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms: make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	mailDropped, err := meter.Int64ObservableCounter(
		"authcore_mail_dropped_total",
		metric.WithDescription("Verification emails dropped because the mail queue was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("create mail dropped counter: %w", err)
	}
	exporter.mailDropped = mailDropped
	observables = append(observables, mailDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		for _, h := range exporter.histograms {
			nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[h.id])
			cumulative := internaldefs.CumulativeBuckets(nonCumulative)
			for i := 0; i < len(cumulative); i++ {
				observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
			}
			observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		}
		observer.ObserveInt64(exporter.mailDropped, int64(exporter.source.MailDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
