// Package async provides the pending-operation handle returned by the
// asynchronous client/server entry points. The blocking primitive runs on
// its own goroutine and only resolves the handle; it never touches owner
// state off the poll thread.
package async

import (
	"context"
	"sync"
)

// Op resolves exactly once to success or to an error.
type Op struct {
	once sync.Once
	done chan struct{}
	err  error
}

func NewOp() *Op {
	return &Op{done: make(chan struct{})}
}

// Run executes fn on a new goroutine and resolves the returned handle
// with its result.
func Run(fn func() error) *Op {
	op := NewOp()
	go func() {
		op.Complete(fn())
	}()
	return op
}

// Complete resolves the handle. Later calls are ignored.
func (o *Op) Complete(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}

// Done is closed when the operation has resolved.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Err returns the outcome. Valid only after Done is closed.
func (o *Op) Err() error {
	return o.err
}

// Wait blocks until the operation resolves or ctx ends.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
