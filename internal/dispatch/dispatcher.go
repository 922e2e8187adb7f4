// Package dispatch owns the request lifecycle of one session: at most one
// authoritative request at a time, with stale completions discarded.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/gateway"
	"github.com/ashalaginvimeo/AS-test/internal/logging"
	"github.com/ashalaginvimeo/AS-test/internal/prompt"
)

// ErrClosed is returned by Submit after Close
var ErrClosed = errors.New("dispatcher closed")

// Invoker performs one model call for a composed request
type Invoker interface {
	Invoke(ctx context.Context, req prompt.Request) (catalog.Output, error)
}

// Observer receives state transitions in the order they happened. Calls are
// serialized; a snapshot overtaken by a newer one before delivery is skipped,
// so the last call always carries the current state. It must not call back
// into the Dispatcher.
type Observer func(State)

// Dispatcher runs tool requests one at a time. Every submission bumps the
// generation; a completion whose generation is no longer current is dropped.
type Dispatcher struct {
	mu       sync.Mutex
	invoker  Invoker
	logger   *zap.Logger
	timeout  time.Duration
	observer Observer
	newID    func() string

	notifyMu  sync.Mutex
	seq       uint64
	delivered uint64

	state   State
	cancel  context.CancelFunc
	changed chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger; failures are logged here with their raw cause
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTimeout bounds each request; zero disables the bound
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithObserver registers a callback for state transitions
func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// WithInitialTool selects the tool active at start
func WithInitialTool(tool catalog.Tool) Option {
	return func(d *Dispatcher) {
		if tool.Valid() {
			d.state.Tool = tool
		}
	}
}

// New creates an idle dispatcher with the default tool selected
func New(invoker Invoker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		invoker: invoker,
		logger:  zap.NewNop(),
		newID:   uuid.NewString,
		state:   State{Phase: PhaseIdle, Tool: catalog.DefaultTool},
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns a snapshot of the current state
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ActiveTool returns the selected tool
func (d *Dispatcher) ActiveTool() catalog.Tool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Tool
}

// SelectTool switches the active tool. Switching to a different tool cancels
// any in-flight request and clears the previous result; reselecting is a no-op.
func (d *Dispatcher) SelectTool(tool catalog.Tool) error {
	if !tool.Valid() {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownTool, tool)
	}

	d.mu.Lock()
	if d.state.Tool == tool {
		d.mu.Unlock()
		return nil
	}
	d.abortLocked()
	d.state = State{
		Phase:      PhaseIdle,
		Tool:       tool,
		Generation: d.state.Generation + 1,
	}
	snap, seq := d.transitionLocked()
	d.mu.Unlock()

	d.logger.Debug("tool selected", zap.String("tool", string(tool)), zap.Uint64("generation", snap.Generation))
	d.notify(snap, seq)
	return nil
}

// Submit validates input, supersedes any in-flight request and starts a new
// one in the background. It returns the generation of the new request.
func (d *Dispatcher) Submit(ctx context.Context, input catalog.Input) (uint64, error) {
	if err := catalog.Validate(input); err != nil {
		return 0, err
	}
	req, err := prompt.Compose(input)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrClosed
	}
	if input.Tool() != d.state.Tool {
		active := d.state.Tool
		d.mu.Unlock()
		return 0, fmt.Errorf("%w: input is for %s but %s is active", catalog.ErrToolMismatch, input.Tool(), active)
	}

	if d.state.Phase == PhaseLoading {
		d.logger.Debug("superseding in-flight request",
			zap.String("request_id", d.state.RequestID),
			zap.Uint64("generation", d.state.Generation),
		)
	}
	d.abortLocked()

	// The request outlives the caller's context (an HTTP handler returns 202
	// immediately); cancellation comes from supersede, Cancel or Close.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if d.timeout > 0 {
		runCtx, cancel = withTimeout(runCtx, cancel, d.timeout)
	}

	gen := d.state.Generation + 1
	d.state = State{
		Phase:      PhaseLoading,
		Tool:       input.Tool(),
		Generation: gen,
		RequestID:  d.newID(),
		Input:      input,
		StartedAt:  time.Now(),
	}
	d.cancel = cancel
	snap, seq := d.transitionLocked()
	d.wg.Add(1)
	d.mu.Unlock()

	d.logger.Info("request started",
		zap.String("tool", string(snap.Tool)),
		zap.String("request_id", snap.RequestID),
		zap.Uint64("generation", gen),
	)
	d.logger.Debug("request input", zap.String("request_id", snap.RequestID), logging.Payload("input", input))
	d.notify(snap, seq)

	go d.run(runCtx, cancel, gen, req)
	return gen, nil
}

func withTimeout(parent context.Context, parentCancel context.CancelFunc, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		cancel()
		parentCancel()
	}
}

func (d *Dispatcher) run(ctx context.Context, cancel context.CancelFunc, gen uint64, req prompt.Request) {
	defer d.wg.Done()
	defer cancel()

	out, err := d.invoker.Invoke(ctx, req)
	if err == nil && out == nil {
		err = fmt.Errorf("empty result")
	}
	if err == nil && out.Tool() != req.Tool {
		err = fmt.Errorf("%w: expected %s output, got %s", catalog.ErrToolMismatch, req.Tool, out.Tool())
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("request timed out after %s: %w", d.timeout, err)
	}
	d.complete(gen, out, err)
}

func (d *Dispatcher) complete(gen uint64, out catalog.Output, err error) {
	d.mu.Lock()
	if d.state.Generation != gen || d.state.Phase != PhaseLoading {
		current := d.state.Generation
		d.mu.Unlock()
		d.logger.Debug("discarding stale result",
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", current),
			zap.Error(err),
		)
		return
	}

	d.cancel = nil
	d.state.FinishedAt = time.Now()
	if err != nil {
		d.state.Phase = PhaseFailed
		d.state.Reason = FailurePrefix + err.Error()
		d.state.Kind = gateway.KindOf(err)
	} else {
		d.state.Phase = PhaseSucceeded
		d.state.Output = out
	}
	snap, seq := d.transitionLocked()
	d.mu.Unlock()

	fields := []zap.Field{
		zap.String("tool", string(snap.Tool)),
		zap.String("request_id", snap.RequestID),
		zap.Uint64("generation", gen),
		zap.Duration("duration", snap.Duration()),
	}
	if err != nil {
		d.logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		d.logger.Info("request succeeded", fields...)
	}
	d.notify(snap, seq)
}

// Cancel aborts the in-flight request, if any, and returns to idle.
// The last input is kept so the form can be resubmitted.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	if d.state.Phase != PhaseLoading {
		d.mu.Unlock()
		return
	}
	d.abortLocked()
	d.state.Phase = PhaseIdle
	d.state.FinishedAt = time.Now()
	snap, seq := d.transitionLocked()
	d.mu.Unlock()

	d.logger.Info("request cancelled", zap.String("request_id", snap.RequestID), zap.Uint64("generation", snap.Generation))
	d.notify(snap, seq)
}

// Wait blocks until the request of generation gen settles or is superseded,
// and returns the state at that point.
func (d *Dispatcher) Wait(ctx context.Context, gen uint64) (State, error) {
	for {
		d.mu.Lock()
		snap := d.state
		ch := d.changed
		d.mu.Unlock()

		if snap.Generation > gen || (snap.Generation == gen && snap.Settled()) {
			return snap, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Close cancels any in-flight request and waits for background work to finish.
// Later submissions fail with ErrClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	wasLoading := d.state.Phase == PhaseLoading
	d.abortLocked()
	var (
		snap State
		seq  uint64
	)
	if wasLoading {
		d.state.Phase = PhaseIdle
		d.state.FinishedAt = time.Now()
		snap, seq = d.transitionLocked()
	}
	d.mu.Unlock()

	if wasLoading {
		d.notify(snap, seq)
	}
	d.wg.Wait()
}

func (d *Dispatcher) abortLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// transitionLocked wakes waiters and returns the new snapshot with its sequence number
func (d *Dispatcher) transitionLocked() (State, uint64) {
	close(d.changed)
	d.changed = make(chan struct{})
	d.seq++
	return d.state, d.seq
}

func (d *Dispatcher) notify(s State, seq uint64) {
	if d.observer == nil {
		return
	}
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	if seq <= d.delivered {
		return
	}
	d.delivered = seq
	d.observer(s)
}
