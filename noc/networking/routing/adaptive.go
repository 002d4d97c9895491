package routing

import (
	"math"
	"math/rand"

	"github.com/sarchlab/nocsim/noc/networking"
	"github.com/sarchlab/nocsim/noc/packet"
)

// Weights scale the terms of an adaptive score.
type Weights struct {
	Progressive float64
	Load        float64
	Remaining   float64
}

const scoreEpsilon = 1e-9

type candidate struct {
	out         *networking.Port
	in          *networking.Port
	progressive bool
	score       float64
}

type evaluator interface {
	Evaluate(source, out *networking.Port, pkt *packet.Packet) float64
}

// adaptive holds what SLB and SO share: candidate enumeration, selection
// and tie breaking.
type adaptive struct {
	weights   Weights
	rng       *rand.Rand
	turnModel TurnModel
}

func newAdaptive(w Weights, seed int64) adaptive {
	return adaptive{
		weights: w,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// TurnModel returns the turn model that restricts the candidates.
func (a *adaptive) TurnModel() TurnModel {
	return a.turnModel
}

// candidates lists the output ports other than source that can be used now
// and that the turn model allows.
func (a *adaptive) candidates(
	r *networking.Router,
	source *networking.Port,
	h *packet.Header,
) []candidate {
	var list []candidate

	for _, out := range r.Ports() {
		if out == source || out.Dimension() < 0 {
			continue
		}

		if !a.turnModel.Allows(out, h) || !r.IsAvailable(out, source) {
			continue
		}

		in := r.PeerInputPort(out)
		if in == nil {
			continue
		}

		list = append(list, candidate{
			out:         out,
			in:          in,
			progressive: IsProgressive(out, h),
		})
	}

	return list
}

// selectBest returns the highest scoring candidate. Ties are broken by a
// uniform random draw, after keeping only progressive candidates if
// preferProgressive is set and one of them is tied.
func (a *adaptive) selectBest(
	list []candidate,
	preferProgressive bool,
) candidate {
	best := math.Inf(-1)
	for _, c := range list {
		best = math.Max(best, c.score)
	}

	var tied []candidate
	for _, c := range list {
		if c.score >= best-scoreEpsilon {
			tied = append(tied, c)
		}
	}

	if preferProgressive {
		var progressive []candidate
		for _, c := range tied {
			if c.progressive {
				progressive = append(progressive, c)
			}
		}

		if len(progressive) > 0 {
			tied = progressive
		}
	}

	return tied[indexOf(a.rng.Float64(), len(tied))]
}

// indexOf maps a draw in [0, 1] to an index in [0, n). A draw of 1 is
// clamped to n-1.
func indexOf(draw float64, n int) int {
	idx := int(draw * float64(n))
	if idx >= n {
		idx = n - 1
	}

	return idx
}

func (a *adaptive) route(
	e evaluator,
	r *networking.Router,
	source *networking.Port,
	pkt *packet.Packet,
	list []candidate,
	preferProgressive bool,
) *networking.Route {
	if len(list) == 0 {
		return nil
	}

	for i := range list {
		list[i].score = e.Evaluate(source, list[i].out, pkt)
	}

	chosen := a.selectBest(list, preferProgressive)

	applyHop(chosen.out, pkt.Header)
	writeLoadFeedback(r, source, chosen.out, pkt.Header)

	return &networking.Route{
		Packet:          pkt,
		SourcePort:      chosen.out,
		DestinationPort: chosen.in,
	}
}

func loadOf(source, out *networking.Port) int {
	lc := out.Router().LoadComponent()
	if lc == nil {
		return 0
	}

	return lc.GetLoadForDirection(source, out)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
