package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// An Engine runs a discrete event simulation.
type Engine interface {
	Hookable
	TimeTeller

	// Schedule queues an event. Events may not be scheduled in the past.
	Schedule(e Event)

	// Cancel prevents a scheduled event from being handled. Cancelling an
	// event that has already been handled or cancelled does nothing.
	Cancel(e Event)

	// Run handles events in time order until none is left.
	Run() error

	// Pause blocks Run before the next event until Continue is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()
}
