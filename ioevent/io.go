/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ioevent

import "sync"

// IoMeta is per-call metadata a layer may inspect or set (e.g. peer
// address learned by the socket layer, or the record type peeled off by
// the TLS layer). It is opaque to the event loop.
type IoMeta map[string]interface{}

// IoLayer is one link in an Io's bottom-up stack. Layer 0 is always the
// lowest (the OS resource); higher layers wrap lower ones.
type IoLayer interface {
	Init(io *Io, layerIdx int) bool
	Read(p []byte, meta IoMeta) (int, IoError)
	Write(p []byte, meta IoMeta) (int, IoError)
	// ProcessEvent handles an event arriving from below. If it returns
	// true, the event was consumed and must not propagate further up.
	ProcessEvent(ev EventType) bool
	State() IoState
	ErrorMessage() (string, bool)
	Disconnect() bool
	Unregister()
	Destroy()
}

// SoftEvent is an event a layer queues on its Io rather than delivering
// synchronously. Queued soft events do not pass through the layers: the
// next dispatch hands each one's Kind straight to the Io's callback.
type SoftEvent struct {
	Kind EventType
	// UpNotDown and LayerIdx record the direction and originating layer;
	// dispatch does not route by them.
	UpNotDown bool
	LayerIdx  int
}

// Io is an ordered stack of IoLayers sharing one mutex, callback, and
// soft-event queue.
type Io struct {
	mu sync.Mutex

	layers []IoLayer
	cb     Callback
	arg    interface{}

	soft []SoftEvent

	loop *EventLoop
}

// Callback is invoked by the event loop whenever an event reaches the
// top of the Io's layer stack.
type Callback func(io *Io, ev EventType, arg interface{})

// NewIo builds an Io with no layers yet; callers push layers bottom-up
// with PushLayer before registering it with an EventLoop.
func NewIo() *Io {
	return &Io{}
}

// Acquire takes the Io's lock; every state-changing operation must hold
// it, per spec §4.1's scheduling model.
func (io *Io) Acquire() { io.mu.Lock() }

// Release releases the Io's lock.
func (io *Io) Release() { io.mu.Unlock() }

// PushLayer appends a new top layer onto the stack and initializes it.
func (io *Io) PushLayer(l IoLayer) bool {
	io.mu.Lock()
	defer io.mu.Unlock()

	idx := len(io.layers)
	if !l.Init(io, idx) {
		return false
	}
	io.layers = append(io.layers, l)
	return true
}

// TopLayer returns the highest layer in the stack, or nil if empty.
func (io *Io) TopLayer() IoLayer {
	io.mu.Lock()
	defer io.mu.Unlock()
	if len(io.layers) == 0 {
		return nil
	}
	return io.layers[len(io.layers)-1]
}

// Layer returns the layer at idx, or nil if out of range.
func (io *Io) Layer(idx int) IoLayer {
	io.mu.Lock()
	defer io.mu.Unlock()
	if idx < 0 || idx >= len(io.layers) {
		return nil
	}
	return io.layers[idx]
}

// State reflects the top layer's state, or Init if the stack is empty.
func (io *Io) State() IoState {
	if top := io.TopLayer(); top != nil {
		return top.State()
	}
	return Init
}

// Read reads through the top layer.
func (io *Io) Read(p []byte, meta IoMeta) (int, IoError) {
	top := io.TopLayer()
	if top == nil {
		return 0, Invalid
	}
	return top.Read(p, meta)
}

// Write writes through the top layer.
func (io *Io) Write(p []byte, meta IoMeta) (int, IoError) {
	top := io.TopLayer()
	if top == nil {
		return 0, Invalid
	}
	return top.Write(p, meta)
}

// Disconnect disconnects every layer top-down.
func (io *Io) Disconnect() bool {
	io.mu.Lock()
	layers := append([]IoLayer(nil), io.layers...)
	io.mu.Unlock()

	ok := true
	for i := len(layers) - 1; i >= 0; i-- {
		if !layers[i].Disconnect() {
			ok = false
		}
	}
	return ok
}

// Destroy tears down every layer top-down and detaches the Io from its
// loop.
func (io *Io) Destroy() {
	io.mu.Lock()
	layers := append([]IoLayer(nil), io.layers...)
	io.layers = nil
	loop := io.loop
	io.loop = nil
	io.mu.Unlock()

	if loop != nil && len(layers) > 0 {
		if fs, ok := layers[0].(FdSource); ok {
			_ = loop.poller.remove(fs.Fd())
		}
	}
	for i := len(layers) - 1; i >= 0; i-- {
		layers[i].Unregister()
		layers[i].Destroy()
	}
	if loop != nil {
		loop.remove(io)
	}
}

// QueueSoftEvent enqueues an event; the next dispatch on this Io delivers
// it to the callback right after the callback for the event being
// dispatched.
func (io *Io) QueueSoftEvent(ev SoftEvent) {
	io.mu.Lock()
	io.soft = append(io.soft, ev)
	io.mu.Unlock()
}

func (io *Io) drainSoft() []SoftEvent {
	io.mu.Lock()
	defer io.mu.Unlock()
	out := io.soft
	io.soft = nil
	return out
}

func (io *Io) dispatch(ev EventType) {
	io.mu.Lock()
	cb := io.cb
	arg := io.arg
	layers := append([]IoLayer(nil), io.layers...)
	io.mu.Unlock()

	for i := 0; i < len(layers); i++ {
		if layers[i].ProcessEvent(ev) {
			return
		}
	}

	if cb != nil {
		cb(io, ev, arg)
	}

	for _, se := range io.drainSoft() {
		if cb != nil {
			cb(io, se.Kind, arg)
		}
	}
}
