package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Completion reports the outcome of a request started with Start
type Completion struct {
	Request Request
	Result  *Result
	Err     error
}

// Coordinator allows at most one outstanding backend request.
// A submission made while another is in flight is refused with ErrBusy.
type Coordinator struct {
	mu       sync.RWMutex
	backend  Backend
	inFlight atomic.Bool
}

// New creates a coordinator over backend
func New(backend Backend) *Coordinator {
	return &Coordinator{backend: backend}
}

// SetBackend swaps the backend used by later requests
func (c *Coordinator) SetBackend(backend Backend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend = backend
}

// InFlight reports whether a request is outstanding
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// Submit sends req and blocks until the backend answers
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Result, error) {
	if err := c.acquire(req); err != nil {
		return nil, err
	}
	defer c.inFlight.Store(false)

	return c.run(ctx, req)
}

// Start sends req in the background and delivers the outcome on done.
// The in-flight flag is already cleared when the completion is received.
func (c *Coordinator) Start(ctx context.Context, req Request, done chan<- Completion) error {
	if err := c.acquire(req); err != nil {
		return err
	}

	go func() {
		result, err := c.run(ctx, req)
		c.inFlight.Store(false)
		done <- Completion{Request: req, Result: result, Err: err}
	}()
	return nil
}

func (c *Coordinator) acquire(req Request) error {
	if err := req.validate(); err != nil {
		log.Printf("[COORD] Rejected %s request: %v", req.Kind, err)
		return err
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		log.Printf("[COORD] Refused %s request: another request is in flight", req.Kind)
		return ErrBusy
	}
	return nil
}

func (c *Coordinator) run(ctx context.Context, req Request) (*Result, error) {
	c.mu.RLock()
	backend := c.backend
	c.mu.RUnlock()

	if backend == nil {
		return nil, fmt.Errorf("%w: no backend configured", ErrRequestFailed)
	}

	log.Printf("[COORD] Sending %s request (%d files, %d references)", req.Kind, len(req.Files), len(req.References))
	start := time.Now()

	result, err := backend.Analyze(ctx, req)
	if err != nil {
		log.Printf("[COORD] %s request failed after %v: %v", req.Kind, time.Since(start).Round(time.Millisecond), err)
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: backend returned no result", ErrRequestFailed)
	}

	result, err = normalize(req, result)
	if err != nil {
		log.Printf("[COORD] %s request returned an unusable result: %v", req.Kind, err)
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	log.Printf("[COORD] %s request completed in %v", req.Kind, time.Since(start).Round(time.Millisecond))
	return result, nil
}
