// Package load estimates congestion from buffer occupancy.
package load

import (
	"log"
	"math"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// BufferLoad derives loads from the occupancy of port buffers and from the
// feedback that neighbors write into HEAD flits.
type BufferLoad struct{}

// NewBufferLoad creates a BufferLoad.
func NewBufferLoad() *BufferLoad {
	return &BufferLoad{}
}

// GetLocalLoad returns the occupancy of the port's buffers on a 0 to 100
// scale.
func (l *BufferLoad) GetLocalLoad(p *networking.Port) int {
	size := p.InQueue().Size()
	capacity := p.InQueue().Capacity()

	if out := p.OutQueue(); out != nil {
		size += out.Size()
		capacity += out.Capacity()
	}

	return mustBeInRange(
		int(math.Round(float64(packet.MaxLoad*size) / float64(capacity))))
}

// GetLoadForDirection combines the load toward candidate with the average
// load reported on the ports of the other dimensions, weighted 2 to 1.
func (l *BufferLoad) GetLoadForDirection(
	_, candidate *networking.Port,
) int {
	r := candidate.Router()

	direct := l.GetLocalLoad(candidate)
	if reported := r.ReportedLoad(candidate); reported > direct {
		direct = reported
	}

	sum, n := 0, 0

	for _, p := range r.Ports() {
		if p.Dimension() < 0 || p.Dimension() == candidate.Dimension() {
			continue
		}

		sum += r.ReportedLoad(p)
		n++
	}

	if n == 0 {
		return mustBeInRange(direct)
	}

	avg := float64(sum) / float64(n)

	return mustBeInRange(int(math.Round((2*float64(direct) + avg) / 3)))
}

func mustBeInRange(load int) int {
	if load < 0 || load > packet.MaxLoad {
		log.Panicf("load %d is out of [0, %d]", load, packet.MaxLoad)
	}

	return load
}
