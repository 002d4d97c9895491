// Package packet defines the flits that travel on the network-on-chip.
package packet

import (
	"fmt"
	"log"

	"github.com/sarchlab/nocsim/sim"
)

// A Packet is a flit. HEAD flits carry a Header; DATA flits carry none and
// follow the route that their HEAD flit reserved.
type Packet struct {
	ID        string
	MessageID string
	SeqID     int
	Kind      Kind

	// Header is nil for DATA flits.
	Header *Header

	Source      int
	Destination int
	Size        int

	// Blocked is set when flow control held a HEAD flit. It is only used for
	// tracing.
	Blocked bool

	// Hops counts the channels the flit has crossed.
	Hops int

	SendTime sim.VTimeInSec
	RecvTime sim.VTimeInSec
}

// IsHead returns true for HEAD flits.
func (p *Packet) IsHead() bool {
	return p.Kind == KindHead
}

// IsEmpty returns true if no header is attached.
func (p *Packet) IsEmpty() bool {
	return p.Header == nil
}

// MessageLength returns the number of flits in the message the packet
// belongs to. It is only known on HEAD flits; DATA flits report 0.
func (p *Packet) MessageLength() int {
	if p.Header == nil {
		return 0
	}

	return p.Header.DataFlitCount() + 1
}

// MustHaveHeader aborts the simulation if a HEAD flit lost its header.
func (p *Packet) MustHaveHeader() {
	if p.IsHead() && p.IsEmpty() {
		log.Panicf("HEAD flit %s has no header", p.ID)
	}
}

// Clone returns a copy of the packet with its own header and a new ID.
func (p *Packet) Clone() *Packet {
	c := *p
	c.ID = fmt.Sprintf("%s-copy-%s", p.MessageID, sim.GetIDGenerator().Generate())

	if p.Header != nil {
		c.Header = p.Header.Clone()
	}

	return &c
}

func (p *Packet) String() string {
	if p.Header == nil {
		return fmt.Sprintf("%s(%s #%d %d->%d)",
			p.Kind, p.MessageID, p.SeqID, p.Source, p.Destination)
	}

	return fmt.Sprintf("%s(%s #%d %d->%d %s)",
		p.Kind, p.MessageID, p.SeqID, p.Source, p.Destination, p.Header)
}
