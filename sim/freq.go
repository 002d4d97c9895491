package sim

import (
	"log"
	"math"
)

// Freq is a clock frequency in Hz.
type Freq float64

// GHz is one billion cycles per second.
const GHz Freq = 1e9

// Period returns the length of a cycle.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle returns the number of whole cycles elapsed at time t.
func (f Freq) Cycle(t VTimeInSec) uint64 {
	return uint64(math.Floor(f.scaled(t)))
}

// ThisTick returns the first clock edge at or after now.
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	return VTimeInSec(math.Ceil(f.scaled(now)) / float64(f))
}

// NextTick returns the first clock edge strictly after now.
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	return VTimeInSec((math.Floor(f.scaled(now)) + 1) / float64(f))
}

// SubTick returns the time 1/speedup of a cycle after now. DATA flits that
// move faster than the clock are scheduled on sub-ticks.
func (f Freq) SubTick(now VTimeInSec, speedup int) VTimeInSec {
	if speedup <= 0 {
		log.Panic("speedup must be positive")
	}

	return now + f.Period()/VTimeInSec(speedup)
}

// scaled converts t to cycles, rounded to a tenth of a cycle so that float
// noise does not move a time across an edge.
func (f Freq) scaled(t VTimeInSec) float64 {
	if math.IsNaN(float64(t)) {
		log.Panic("invalid time")
	}

	return math.Round(float64(t)*10*float64(f)) / 10
}
