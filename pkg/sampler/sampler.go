package sampler

import (
	"time"

	"github.com/vjranagit/memtrend/pkg/series"
)

// Tracker owns the lifecycle of one measurement series: Start begins
// a run with a baseline sample, Record appends quiesced readings while
// the run is active, and Stop takes the final reading and freezes the
// series.
//
// A Tracker is not safe for concurrent use. The caller holding it owns
// it exclusively; sampling happens only on explicit calls, never from
// a background goroutine.
type Tracker struct {
	series   *series.Series
	meter    Meter
	quiescer Quiescer
	clock    func() time.Time
	start    time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithMeter substitutes the resident-memory source
func WithMeter(m Meter) Option {
	return func(t *Tracker) { t.meter = m }
}

// WithQuiescer substitutes the pre-measurement settling step
func WithQuiescer(q Quiescer) Option {
	return func(t *Tracker) { t.quiescer = q }
}

// New returns a Tracker in the Uninitialized state. Without options it
// meters the current process and quiesces via a full GC.
func New(label string, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		series: series.New(label),
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.meter == nil {
		m, err := NewProcessMeter()
		if err != nil {
			return nil, err
		}
		t.meter = m
	}
	if t.quiescer == nil {
		t.quiescer = DefaultQuiescer()
	}

	return t, nil
}

// Start begins a measurement run: the series becomes Active with an
// empty sample list and an immediate baseline sample at elapsed zero.
// Calling Start on a running or closed tracker resets it, discarding
// prior samples.
func (t *Tracker) Start() (series.Sample, error) {
	t.series.Activate()
	t.start = t.clock()
	return t.record(0)
}

// Record takes one quiesced reading and appends it to the series.
// It fails with a StateError unless the tracker is Active.
func (t *Tracker) Record() (series.Sample, error) {
	if t.series.State != series.Active {
		return series.Sample{}, &series.StateError{Op: "record", State: t.series.State}
	}
	return t.record(t.clock().Sub(t.start).Seconds())
}

// Stop records the final sample and freezes the series. Stopping a
// tracker that is not Active, including a second Stop, returns a
// StateError.
func (t *Tracker) Stop() (series.Sample, error) {
	if t.series.State != series.Active {
		return series.Sample{}, &series.StateError{Op: "stop", State: t.series.State}
	}

	sample, err := t.record(t.clock().Sub(t.start).Seconds())
	if err != nil {
		return series.Sample{}, err
	}

	if err := t.series.Close(); err != nil {
		return series.Sample{}, err
	}
	return sample, nil
}

// Series exposes the tracker's series for persistence and comparison
func (t *Tracker) Series() *series.Series {
	return t.series
}

// record quiesces the runtime, reads resident memory and appends one
// sample at the given elapsed offset
func (t *Tracker) record(elapsed float64) (series.Sample, error) {
	if err := t.quiescer.Settle(t.meter); err != nil {
		return series.Sample{}, err
	}

	rss, err := t.meter.ReadResident()
	if err != nil {
		return series.Sample{}, err
	}

	sample := series.Sample{ElapsedSeconds: elapsed, Value: float64(rss)}
	if err := t.series.Append(sample); err != nil {
		return series.Sample{}, err
	}
	return sample, nil
}
