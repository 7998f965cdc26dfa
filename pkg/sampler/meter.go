package sampler

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/process"
)

// Meter reads the current process's resident memory in bytes.
// Implementations must be cheap enough to call several times in a row
// during the settle loop.
type Meter interface {
	ReadResident() (uint64, error)
}

// MeasurementError reports a failed resident-memory query
type MeasurementError struct {
	Err error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("resident memory query failed: %v", e.Err)
}

// Unwrap returns the underlying cause
func (e *MeasurementError) Unwrap() error {
	return e.Err
}

// processMeter reads RSS from the OS process table
type processMeter struct {
	proc *process.Process
}

// NewProcessMeter returns a Meter for the current process
func NewProcessMeter() (Meter, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, &MeasurementError{Err: err}
	}
	return &processMeter{proc: proc}, nil
}

// ReadResident implements Meter
func (m *processMeter) ReadResident() (uint64, error) {
	mem, err := m.proc.MemoryInfo()
	if err != nil {
		return 0, &MeasurementError{Err: err}
	}
	return mem.RSS, nil
}
