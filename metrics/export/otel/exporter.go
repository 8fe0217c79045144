package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// instruments holds what one family is published as. Counters use only
// total; histograms publish each cumulative bucket as a gauge plus a count.
type instruments struct {
	total   metric.Int64Observable
	buckets [internaldefs.BucketCount]metric.Int64ObservableGauge
}

// OTelExporter publishes client metrics through an OTel meter.
type OTelExporter struct {
	source       internaldefs.Source
	byName       map[string]instruments
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that read from client.
func NewOTelExporter(meter metric.Meter, client *consoleauth.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource registers instruments reading from source.
func NewOTelExporterFromSource(meter metric.Meter, source internaldefs.Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source: source,
		byName: make(map[string]instruments, len(internaldefs.Families)),
	}
	var observables []metric.Observable

	for _, f := range internaldefs.Families {
		var ins instruments
		switch f.Kind {
		case internaldefs.KindCounter:
			c, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
			if err != nil {
				return nil, fmt.Errorf("create counter %s: %w", f.Name, err)
			}
			ins.total = c
			observables = append(observables, c)

		case internaldefs.KindHistogram:
			for i, b := range internaldefs.Buckets {
				name := f.Name + "_bucket_le_" + b.Suffix
				g, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket of "+f.Name+"."))
				if err != nil {
					return nil, fmt.Errorf("create gauge %s: %w", name, err)
				}
				ins.buckets[i] = g
				observables = append(observables, g)
			}
			g, err := meter.Int64ObservableGauge(f.Name+"_count", metric.WithDescription("Sample count of "+f.Name+"."))
			if err != nil {
				return nil, fmt.Errorf("create gauge %s_count: %w", f.Name, err)
			}
			ins.total = g
			observables = append(observables, g)
		}
		e.byName[f.Name] = ins
	}

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	for _, s := range internaldefs.Collect(e.source) {
		ins, ok := e.byName[s.Name]
		if !ok {
			continue
		}
		o.ObserveInt64(ins.total, int64(s.Value))
		if s.Kind != internaldefs.KindHistogram {
			continue
		}
		for i, v := range s.Cumulative {
			o.ObserveInt64(ins.buckets[i], int64(v))
		}
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
