package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/nocsim/sim"
	"github.com/sarchlab/nocsim/tracing"
)

func printSummary(
	out io.Writer,
	s tracing.Summary,
	endTime sim.VTimeInSec,
) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	rows := []struct {
		name  string
		value any
	}{
		{"Simulated time (s)", fmt.Sprintf("%.9g", float64(endTime))},
		{"Messages injected", s.MessagesInjected},
		{"Messages received", s.MessagesReceived},
		{"Flits injected", s.FlitsInjected},
		{"Flits sent", s.FlitsSent},
		{"Flits received", s.FlitsReceived},
		{"Blocked", s.Blocked},
		{"Flits dropped", s.FlitsDropped},
		{"Average latency (s)", fmt.Sprintf("%.6g", float64(s.AverageLatency))},
		{"Average hops", fmt.Sprintf("%.3f", s.AverageHops)},
	}

	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%v\n", r.name, r.value)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Router\tSent\tReceived\tBlocked\tDropped")

	for _, r := range s.Routers {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			r.Name, r.FlitsSent, r.FlitsReceived, r.Blocked, r.FlitsDropped)
	}

	return w.Flush()
}
