package sim

import (
	"log"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// A SerialEngine handles events one at a time on the calling goroutine.
type SerialEngine struct {
	HookableBase

	timeLock sync.RWMutex
	time     VTimeInSec
	queue    EventQueue

	// pending maps the ID of every queued event to whether it was cancelled.
	pendingLock sync.Mutex
	pending     map[string]bool

	// pauseLock is held while an event is handled and while paused.
	pauseLock    sync.Mutex
	isPaused     bool
	isPausedLock sync.Mutex

	runLock sync.Mutex
}

// NewSerialEngine creates a SerialEngine with an empty queue.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		queue:   NewEventQueue(),
		pending: make(map[string]bool),
	}
}

// Schedule queues an event.
func (e *SerialEngine) Schedule(evt Event) {
	if now := e.CurrentTime(); evt.Time() < now {
		log.Panicf("event %s @ %.10f is scheduled at %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	e.pendingLock.Lock()
	e.pending[evt.ID()] = false
	e.pendingLock.Unlock()

	e.queue.Push(evt)
}

// Cancel marks a queued event so that it is dropped instead of handled.
func (e *SerialEngine) Cancel(evt Event) {
	if evt == nil {
		return
	}

	e.pendingLock.Lock()
	defer e.pendingLock.Unlock()

	if _, found := e.pending[evt.ID()]; found {
		e.pending[evt.ID()] = true
	}
}

// CurrentTime returns the time of the event being handled or, between
// events, of the last one handled.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.time
}

func (e *SerialEngine) setTime(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run handles events until the queue is empty. It stops at the first
// handler error.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for e.queue.Len() > 0 {
		if err := e.step(); err != nil {
			return err
		}
	}

	return nil
}

func (e *SerialEngine) step() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.queue.Pop()
	if e.retire(evt) {
		return nil
	}

	e.setTime(evt.Time())

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	if err := evt.Handler().Handle(evt); err != nil {
		return errors.Wrapf(err, "handle %s @ %.10f",
			reflect.TypeOf(evt), evt.Time())
	}

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return nil
}

// retire removes the event from the pending set and reports whether it was
// cancelled.
func (e *SerialEngine) retire(evt Event) (cancelled bool) {
	e.pendingLock.Lock()
	defer e.pendingLock.Unlock()

	cancelled = e.pending[evt.ID()]
	delete(e.pending, evt.ID())

	return cancelled
}

// Pause stops the engine before its next event.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes a paused engine.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}
