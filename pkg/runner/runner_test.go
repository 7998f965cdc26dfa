package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/memtrend/pkg/sampler"
	"github.com/vjranagit/memtrend/pkg/series"
)

type fakeMeter struct {
	rss uint64
}

func (m *fakeMeter) ReadResident() (uint64, error) {
	m.rss += 1 << 20
	return m.rss, nil
}

type noopQuiescer struct{}

func (noopQuiescer) Settle(sampler.Meter) error { return nil }

type fakeWorkload struct {
	name      string
	failEvery int
	steps     int
}

func (w *fakeWorkload) Name() string { return w.name }

func (w *fakeWorkload) Step(i int) error {
	w.steps++
	if w.failEvery > 0 && i%w.failEvery == 0 {
		return fmt.Errorf("step %d failed", i)
	}
	return nil
}

type recordingSink struct {
	events       []string
	failOnSample int
	records      int
}

func (s *recordingSink) Begin(label string) error {
	s.events = append(s.events, "begin:"+label)
	return nil
}

func (s *recordingSink) Record(series.Sample) error {
	s.records++
	if s.failOnSample > 0 && s.records == s.failOnSample {
		return errors.New("sink full")
	}
	s.events = append(s.events, "sample")
	return nil
}

func (s *recordingSink) End() error {
	s.events = append(s.events, "end")
	return nil
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestTracker(t *testing.T) *sampler.Tracker {
	t.Helper()
	tracker, err := sampler.New("test",
		sampler.WithMeter(&fakeMeter{rss: 100 << 20}),
		sampler.WithQuiescer(noopQuiescer{}))
	if err != nil {
		t.Fatalf("Failed to create tracker: %v", err)
	}
	return tracker
}

func TestRunnerSampleCadence(t *testing.T) {
	tracker := newTestTracker(t)
	sink := &recordingSink{}
	r := &Runner{Interval: 10, Log: quietLogger(), Sink: sink}

	result, err := r.Run(context.Background(), tracker, &fakeWorkload{name: "steady"}, 100)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// baseline + one sample per 10 iterations + final
	if result.Series.Len() != 12 {
		t.Errorf("Expected 12 samples, got %d", result.Series.Len())
	}
	if result.Iterations != 100 {
		t.Errorf("Expected 100 iterations, got %d", result.Iterations)
	}
	if result.StepErrors != 0 {
		t.Errorf("Expected no step errors, got %d", result.StepErrors)
	}
	if result.Series.State != series.Closed {
		t.Errorf("Expected closed series, got %v", result.Series.State)
	}

	wantEvents := 14 // begin + 12 samples + end
	if len(sink.events) != wantEvents {
		t.Fatalf("Expected %d sink events, got %d: %v", wantEvents, len(sink.events), sink.events)
	}
	if sink.events[0] != "begin:steady" {
		t.Errorf("Expected begin event first, got %q", sink.events[0])
	}
	if sink.events[len(sink.events)-1] != "end" {
		t.Errorf("Expected end event last, got %q", sink.events[len(sink.events)-1])
	}
}

func TestRunnerZeroIntervalSamplesEndpointsOnly(t *testing.T) {
	tracker := newTestTracker(t)
	r := &Runner{Interval: 0, Log: quietLogger()}

	result, err := r.Run(context.Background(), tracker, &fakeWorkload{name: "steady"}, 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Series.Len() != 2 {
		t.Errorf("Expected baseline and final samples only, got %d", result.Series.Len())
	}
}

func TestRunnerCountsStepErrors(t *testing.T) {
	tracker := newTestTracker(t)
	w := &fakeWorkload{name: "flaky", failEvery: 3}
	r := &Runner{Interval: 5, Log: quietLogger()}

	result, err := r.Run(context.Background(), tracker, w, 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// i = 0, 3, 6, 9
	if result.StepErrors != 4 {
		t.Errorf("Expected 4 step errors, got %d", result.StepErrors)
	}
	if w.steps != 10 {
		t.Errorf("Expected all 10 steps attempted, got %d", w.steps)
	}
	if result.Series.State != series.Closed {
		t.Errorf("Step errors should not abort the run, state %v", result.Series.State)
	}
}

func TestRunnerContextCancellation(t *testing.T) {
	tracker := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &fakeWorkload{name: "steady"}
	r := &Runner{Interval: 10, Log: quietLogger()}

	result, err := r.Run(ctx, tracker, w, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if w.steps != 0 {
		t.Errorf("Expected no steps after cancellation, got %d", w.steps)
	}
	if result.Series.State != series.Active {
		t.Errorf("Cancelled run should leave the series active, got %v", result.Series.State)
	}
}

func TestRunnerDisablesFailingSink(t *testing.T) {
	tracker := newTestTracker(t)
	sink := &recordingSink{failOnSample: 2}
	r := &Runner{Interval: 10, Log: quietLogger(), Sink: sink}

	result, err := r.Run(context.Background(), tracker, &fakeWorkload{name: "steady"}, 100)
	if err != nil {
		t.Fatalf("Sink failure should not fail the run: %v", err)
	}
	if r.Sink != nil {
		t.Error("Expected failing sink to be disabled")
	}
	// begin + first sample; the second record fails and drops the sink
	if len(sink.events) != 2 {
		t.Errorf("Expected 2 sink events before disable, got %d: %v", len(sink.events), sink.events)
	}
	if result.Series.Len() != 12 {
		t.Errorf("Sampling should continue without the sink, got %d samples", result.Series.Len())
	}
}
