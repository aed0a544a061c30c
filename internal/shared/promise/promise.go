// Package promise provides a one-shot result handle.
//
// A Promise is fulfilled exactly once, from any goroutine, with either a
// value or an error. Fulfilling it a second time panics: every code path
// that owns a promise must terminate by resolving it once.
package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyFulfilled is the panic value raised on a second fulfilment.
var ErrAlreadyFulfilled = errors.New("promise: already fulfilled")

// errNilFailure replaces a nil error passed to Fail.
var errNilFailure = errors.New("promise: failed without error")

// Promise delivers one terminal result to whoever waits on it.
type Promise struct {
	mu        sync.Mutex
	fulfilled bool
	value     any
	err       error
	callbacks []func(any, error)
	done      chan struct{}
}

// New creates an unfulfilled promise.
func New() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved returns a promise that already holds the given result.
func Resolved(v any, err error) *Promise {
	p := New()
	p.Resolve(v, err)
	return p
}

// Resolve fulfils the promise with v and err.
func (p *Promise) Resolve(v any, err error) {
	p.mu.Lock()
	if p.fulfilled {
		p.mu.Unlock()
		panic(ErrAlreadyFulfilled)
	}
	p.fulfilled = true
	p.value, p.err = v, err
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(v, err)
	}
}

// Deliver fulfils the promise with a successful value.
func (p *Promise) Deliver(v any) {
	p.Resolve(v, nil)
}

// Fail fulfils the promise with an error.
func (p *Promise) Fail(err error) {
	if err == nil {
		err = errNilFailure
	}
	p.Resolve(nil, err)
}

// Fulfilled reports whether a result has been delivered.
func (p *Promise) Fulfilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fulfilled
}

// Done is closed once the promise is fulfilled.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Result returns the delivered result. It must only be called after Done
// is closed; before that it returns (nil, nil).
func (p *Promise) Result() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// Wait blocks until the promise is fulfilled or ctx ends.
func (p *Promise) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then registers a continuation. If the promise is already fulfilled fn
// runs immediately on the calling goroutine, otherwise it runs on the
// goroutine that fulfils the promise.
func (p *Promise) Then(fn func(any, error)) {
	p.mu.Lock()
	if !p.fulfilled {
		p.callbacks = append(p.callbacks, fn)
		p.mu.Unlock()
		return
	}
	v, err := p.value, p.err
	p.mu.Unlock()
	fn(v, err)
}
