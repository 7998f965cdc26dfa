package series

import "fmt"

// State describes where a Series is in its lifecycle
type State int

const (
	// Uninitialized is the zero state, before the first Start
	Uninitialized State = iota
	// Active means the series is accepting samples
	Active
	// Closed means the series is frozen and read-only
	Closed
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state as its name, for JSON output
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Sample represents a single resident-memory reading. Value is in
// bytes; ElapsedSeconds counts from the series baseline.
type Sample struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Value          float64 `json:"metric_value"`
}

// Series is an ordered sequence of samples for one measurement run.
// Samples are appended in elapsed order, so ElapsedSeconds is
// non-decreasing across the slice. A Series is exclusively owned by
// the caller holding it and performs no internal locking.
type Series struct {
	Label   string   `json:"label"`
	State   State    `json:"state"`
	Samples []Sample `json:"samples"`
}

// New returns an empty series in the Uninitialized state
func New(label string) *Series {
	return &Series{Label: label, State: Uninitialized}
}

// NewClosed builds an already-frozen series from existing samples,
// as when loading persisted data
func NewClosed(label string, samples []Sample) *Series {
	return &Series{Label: label, State: Closed, Samples: samples}
}

// Activate resets the series to Active with an empty sample list.
// Legal from any state: restarting a run discards prior samples.
func (s *Series) Activate() {
	s.State = Active
	s.Samples = nil
}

// Append adds a sample to an Active series
func (s *Series) Append(sample Sample) error {
	if s.State != Active {
		return &StateError{Op: "append", State: s.State}
	}
	s.Samples = append(s.Samples, sample)
	return nil
}

// Close freezes the series; no further samples may be appended.
// Closing a series that is not Active, including a double close,
// returns a StateError.
func (s *Series) Close() error {
	if s.State != Active {
		return &StateError{Op: "close", State: s.State}
	}
	s.State = Closed
	return nil
}

// Len returns the number of samples
func (s *Series) Len() int {
	return len(s.Samples)
}

// First returns the first sample; ok is false for an empty series
func (s *Series) First() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[0], true
}

// Last returns the most recent sample; ok is false for an empty series
func (s *Series) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// StateError reports an operation invoked in a series state that
// forbids it, such as recording before Start or stopping twice.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s series in %s state", e.Op, e.State)
}
