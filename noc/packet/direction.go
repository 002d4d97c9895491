package packet

// Direction tells which way along a dimension a port faces or a packet moves.
type Direction int

// The directions along one dimension. Forward is the direction of growing
// coordinates (east, north).
const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionBack
)

// Opposite returns the reverse direction. The reverse of DirectionNone is
// DirectionNone.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionForward:
		return DirectionBack
	case DirectionBack:
		return DirectionForward
	default:
		return DirectionNone
	}
}

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBack:
		return "back"
	default:
		return "none"
	}
}

// Kind discriminates HEAD flits, which carry a routing header, from the DATA
// flits that follow them.
type Kind int

// The flit kinds.
const (
	KindHead Kind = iota
	KindData
)

func (k Kind) String() string {
	if k == KindHead {
		return "HEAD"
	}

	return "DATA"
}
