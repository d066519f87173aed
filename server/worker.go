package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/RocioCM/tinyrust-compiler/cache"
	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// Checker runs semantic checks with fixed options. Cache may be nil.
type Checker struct {
	Options compiler.Options
	Cache   *cache.Cache
}

// Check checks prog, consulting the cache when one is configured. Every
// returned report has an ID.
func (c *Checker) Check(ctx context.Context, prog *compiler.Program) (*compiler.Report, error) {
	if c.Cache != nil {
		r, _, err := c.Cache.Check(ctx, prog, c.Options)
		if err != nil && r != nil {
			log.Warningf("%s: %v", prog.Name, err)
			return r, nil
		}
		return r, err
	}
	r := compiler.Check(prog, c.Options)
	r.ID = uuid.NewString()
	return r, nil
}

var errWorkerStopped = errors.New("check worker stopped")

// checkRequest represents a unit of work to be executed on the worker goroutine.
type checkRequest struct {
	fn   func(*Checker) interface{}
	done chan checkResult
}

// checkResult holds the return value from a worker operation.
type checkResult struct {
	value interface{}
	err   error
}

// CheckWorker serializes all checks through a single goroutine, so
// LSP notifications for one document are answered in order and the cache
// sees one writer.
type CheckWorker struct {
	checker  *Checker
	requests chan checkRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewCheckWorker creates a CheckWorker and starts the processing goroutine.
func NewCheckWorker(c *Checker) *CheckWorker {
	w := &CheckWorker{
		checker:  c,
		requests: make(chan checkRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *CheckWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			result := w.execute(req.fn)
			req.done <- result
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the checker, recovering from panics.
func (w *CheckWorker) execute(fn func(*Checker) interface{}) checkResult {
	var result checkResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("check panicked: %v", r)
			}
		}()
		result.value = fn(w.checker)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
// Do fails once the worker is stopped.
func (w *CheckWorker) Do(fn func(*Checker) interface{}) (interface{}, error) {
	req := checkRequest{
		fn:   fn,
		done: make(chan checkResult, 1),
	}
	select {
	case <-w.quit:
		return nil, errWorkerStopped
	default:
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Check runs Checker.Check for prog on the worker goroutine.
func (w *CheckWorker) Check(ctx context.Context, prog *compiler.Program) (*compiler.Report, error) {
	var checkErr error
	result, err := w.Do(func(c *Checker) interface{} {
		r, err := c.Check(ctx, prog)
		checkErr = err
		return r
	})
	if err != nil {
		return nil, err
	}
	if checkErr != nil {
		return nil, checkErr
	}
	return result.(*compiler.Report), nil
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *CheckWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
