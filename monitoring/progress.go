package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/nocsim/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// SetFinished overwrites the number of finished elements.
func (b *ProgressBar) SetFinished(finished uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished = finished
}

// CycleProgressHook advances a progress bar by the number of clock cycles
// that the engine has simulated. Hook it to the engine.
type CycleProgressHook struct {
	bar  *ProgressBar
	freq sim.Freq
}

// NewCycleProgressHook creates a hook that counts cycles of the frequency.
func NewCycleProgressHook(bar *ProgressBar, freq sim.Freq) *CycleProgressHook {
	return &CycleProgressHook{bar: bar, freq: freq}
}

// Func updates the progress bar after every event.
func (h *CycleProgressHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	evt, ok := ctx.Item.(sim.Event)
	if !ok {
		return
	}

	cycles := h.freq.Cycle(evt.Time())
	if cycles > h.bar.Total {
		cycles = h.bar.Total
	}

	h.bar.SetFinished(cycles)
}
