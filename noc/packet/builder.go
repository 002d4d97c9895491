package packet

import (
	"fmt"
	"log"

	"github.com/sarchlab/nocsim/sim"
)

// Builder can build the flits of a message.
type Builder struct {
	src, dst           int
	srcCoord, dstCoord []int
	torusSize          []int
	dataFlitCount      int
	flitSize           int
	sendTime           sim.VTimeInSec
}

// MakeBuilder creates a Builder with 16-byte flits and no DATA flits.
func MakeBuilder() Builder {
	return Builder{flitSize: 16}
}

// WithSource sets the node ID and coordinate of the sender.
func (b Builder) WithSource(node int, coord []int) Builder {
	b.src = node
	b.srcCoord = coord

	return b
}

// WithDestination sets the node ID and coordinate of the receiver.
func (b Builder) WithDestination(node int, coord []int) Builder {
	b.dst = node
	b.dstCoord = coord

	return b
}

// WithTorus makes the builder choose the shorter way around each ring. The
// sizes are the number of nodes along each dimension.
func (b Builder) WithTorus(size []int) Builder {
	b.torusSize = size
	return b
}

// WithDataFlitCount sets how many DATA flits follow the HEAD flit.
func (b Builder) WithDataFlitCount(n int) Builder {
	b.dataFlitCount = n
	return b
}

// WithFlitSize sets the size of every flit in bytes.
func (b Builder) WithFlitSize(bytes int) Builder {
	b.flitSize = bytes
	return b
}

// WithSendTime sets the injection time stamped on the flits.
func (b Builder) WithSendTime(t sim.VTimeInSec) Builder {
	b.sendTime = t
	return b
}

// Build creates the HEAD flit of the message.
func (b Builder) Build() *Packet {
	return b.BuildMessage()[0]
}

// BuildMessage creates the HEAD flit followed by all the DATA flits.
func (b Builder) BuildMessage() []*Packet {
	b.coordsMustMatch()

	msgID := "msg-" + sim.GetIDGenerator().Generate()
	header := NewHeader(b.offsets(), b.srcCoord, b.dataFlitCount)

	flits := make([]*Packet, 0, b.dataFlitCount+1)
	for i := 0; i <= b.dataFlitCount; i++ {
		p := &Packet{
			ID:          fmt.Sprintf("flit-%d-%s", i, msgID),
			MessageID:   msgID,
			SeqID:       i,
			Kind:        KindData,
			Source:      b.src,
			Destination: b.dst,
			Size:        b.flitSize,
			SendTime:    b.sendTime,
		}

		if i == 0 {
			p.Kind = KindHead
			p.Header = header
		}

		flits = append(flits, p)
	}

	return flits
}

func (b Builder) offsets() []int {
	offsets := make([]int, len(b.srcCoord))

	for d := range b.srcCoord {
		delta := b.dstCoord[d] - b.srcCoord[d]

		if b.torusSize != nil {
			size := b.torusSize[d]
			switch {
			case delta > size/2:
				delta -= size
			case -delta > size/2:
				delta += size
			}
		}

		offsets[d] = delta
	}

	return offsets
}

func (b Builder) coordsMustMatch() {
	if len(b.srcCoord) != len(b.dstCoord) {
		log.Panicf("source coordinate %v and destination coordinate %v "+
			"have different dimensions", b.srcCoord, b.dstCoord)
	}

	if b.torusSize != nil && len(b.torusSize) != len(b.srcCoord) {
		log.Panicf("torus size %v does not match coordinate %v",
			b.torusSize, b.srcCoord)
	}
}
