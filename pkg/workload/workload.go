// Package workload provides repeatable request loops whose memory
// behavior differs only in how the underlying service allocates its
// error values.
package workload

import (
	"fmt"
	"strings"
)

// Workload runs one unit of work per step
type Workload interface {
	Name() string
	Step(i int) error
}

type requestWorkload struct {
	name    string
	handler *Handler
}

// NewLeaky returns a workload whose error values accumulate for the
// process lifetime.
func NewLeaky() Workload {
	return &requestWorkload{
		name:    "leaky",
		handler: NewHandler(NewUserService(NewSharedErrors())),
	}
}

// NewClean returns a workload whose error values are dropped after
// each response.
func NewClean() Workload {
	return &requestWorkload{
		name:    "clean",
		handler: NewHandler(NewUserService(FreshErrors{})),
	}
}

func (w *requestWorkload) Name() string {
	return w.name
}

// Step issues one failing request. Every request misses the user
// table and carries an invalid token plus a bulky payload, so each
// step raises an error with attached details.
func (w *requestWorkload) Step(i int) error {
	req := Request{
		UserID:  fmt.Sprintf("nonexistent_user_%d", i),
		Token:   "invalid",
		Payload: strings.Repeat("x", 1000),
		Meta:    requestMeta(),
	}
	resp := w.handler.Handle(req)
	if resp.Status != "error" {
		return fmt.Errorf("step %d: expected error response, got %q", i, resp.Status)
	}
	return nil
}

func requestMeta() map[string]string {
	meta := make(map[string]string, 100)
	for j := 0; j < 100; j++ {
		meta[fmt.Sprintf("field_%d", j)] = fmt.Sprintf("value_%d", j)
	}
	return meta
}
