package sim

import "log"

// HookPosBufPush marks a flit entering a buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// A Buffer is a bounded FIFO queue.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int

	// Clear drops every element.
	Clear()
}

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// NewBuffer creates a buffer that holds up to capacity elements.
func NewBuffer(name string, capacity int) Buffer {
	if capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &fifo{
		name:     name,
		capacity: capacity,
	}
}

type fifo struct {
	HookableBase

	name     string
	capacity int
	elements []interface{}
}

func (b *fifo) Name() string {
	return b.name
}

func (b *fifo) CanPush() bool {
	return len(b.elements) < b.capacity
}

func (b *fifo) Push(e interface{}) {
	if !b.CanPush() {
		log.Panicf("buffer %s overflows", b.name)
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{Domain: b, Pos: HookPosBufPush, Item: e})
}

func (b *fifo) Pop() interface{} {
	e := b.Peek()
	if e != nil {
		b.elements = b.elements[1:]
	}

	return e
}

func (b *fifo) Peek() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *fifo) Capacity() int {
	return b.capacity
}

func (b *fifo) Size() int {
	return len(b.elements)
}

func (b *fifo) Clear() {
	b.elements = nil
}
