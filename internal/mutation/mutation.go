package mutation

import (
	"context"
	"sync"
	"time"

	"enrollment-portal/internal/invalidation"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Command describes one optimistic mutation as data. The executor runs every
// command through the same protocol: lock, cancel reads and snapshot the
// target key, write the prediction, call the backend, then roll back or
// invalidate.
type Command[In, Out any] struct {
	Name           invalidation.Operation
	EventType      string
	FailureMessage string

	// Validate rejects input before anything else happens.
	Validate func(in In) error
	// LockKey names the entity this mutation serializes on. Empty skips locking.
	LockKey func(in In) string
	// Target is the cache key receiving the optimistic write.
	Target func(in In) querycache.Key
	// Optimistic predicts the value at Target. write=false leaves the entry
	// untouched; an error rejects the mutation before the network call.
	Optimistic func(in In, current any, present bool, now time.Time) (next any, write bool, err error)
	// Call performs the remote operation. Its context outlives the caller's.
	Call func(ctx context.Context, in In) (Out, error)
	// Affected names the entities whose cache keys go stale on success.
	// before is the target's state ahead of the optimistic write.
	Affected func(in In, out Out, before querycache.Snapshot) invalidation.Affected
	// SuccessMessage is the toast shown on success.
	SuccessMessage func(in In, out Out) string
	// EntityID identifies the mutated record in published events.
	EntityID func(in In, out Out) string
}

// State is the handle's view for a calling UI
type State[Out any] struct {
	Pending   bool
	Err       error
	Result    Out
	HasResult bool
}

// Mutation is the trigger handle for one command
type Mutation[In, Out any] struct {
	orch *Orchestrator
	cmd  Command[In, Out]

	mu        sync.Mutex
	pending   int
	lastErr   error
	lastOut   Out
	hasResult bool
}

// New binds cmd to the orchestrator
func New[In, Out any](orch *Orchestrator, cmd Command[In, Out]) *Mutation[In, Out] {
	if cmd.FailureMessage == "" {
		cmd.FailureMessage = "Something went wrong"
	}
	return &Mutation[In, Out]{orch: orch, cmd: cmd}
}

func (m *Mutation[In, Out]) Name() string {
	return string(m.cmd.Name)
}

// Mutate runs the mutation to resolution. Every failure has already been
// rolled back and toasted by the time it is returned; callers only need the
// error for control flow.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	op := string(m.cmd.Name)
	ctx, span := util.StartSpan(ctx, "Mutation."+op, attribute.String("operation", op))
	start := time.Now()

	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	out, err := m.run(ctx, in)

	m.mu.Lock()
	m.pending--
	m.lastErr = err
	if err == nil {
		m.lastOut = out
		m.hasResult = true
	}
	m.mu.Unlock()

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	util.MutationsTotal.WithLabelValues(op, outcome).Inc()
	util.MutationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	util.EndSpan(span, err)
	return out, err
}

// Trigger runs the mutation in the background. The returned channel closes
// on resolution; outcome is available through State.
func (m *Mutation[In, Out]) Trigger(in In) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Mutate(context.Background(), in)
	}()
	return done
}

func (m *Mutation[In, Out]) run(ctx context.Context, in In) (Out, error) {
	var zero Out
	o := m.orch
	logger := o.logger.With(zap.String("operation", string(m.cmd.Name)))

	if m.cmd.Validate != nil {
		if err := m.cmd.Validate(in); err != nil {
			return zero, m.fail(ctx, logger, "", err)
		}
	}

	lockKey := ""
	if m.cmd.LockKey != nil {
		lockKey = m.cmd.LockKey(in)
	}
	release, err := o.acquire(ctx, lockKey)
	if err != nil {
		return zero, m.fail(ctx, logger, "", err)
	}
	defer release()

	target := m.cmd.Target(in)
	now := o.clock.Now()
	wrote := false
	snap, err := o.store.ApplyOptimistic(target, func(current any, present bool) (any, bool, error) {
		if m.cmd.Optimistic == nil {
			return nil, false, nil
		}
		next, write, err := m.cmd.Optimistic(in, current, present, now)
		wrote = write && err == nil
		return next, write, err
	})
	if err != nil {
		logger.Info("Mutation rejected before request", zap.String("key", string(target)), zap.Error(err))
		return zero, m.fail(ctx, logger, "", err)
	}

	// Once sent, the request runs to completion and its response is always
	// handled. Only the backend client's own timeout bounds it.
	sent := context.WithoutCancel(ctx)
	out, err := m.cmd.Call(sent, in)
	if err != nil {
		if wrote {
			o.store.Restore(snap)
			util.MutationRollbacksTotal.WithLabelValues(string(m.cmd.Name)).Inc()
			logger.Warn("Mutation failed, optimistic write rolled back",
				zap.String("key", string(target)),
				zap.Bool("had_data", snap.Present),
				zap.Error(err))
		} else {
			logger.Warn("Mutation failed", zap.String("key", string(target)), zap.Error(err))
		}
		return zero, m.fail(sent, logger, m.entityID(in, zero), err)
	}

	var affected invalidation.Affected
	if m.cmd.Affected != nil {
		affected = m.cmd.Affected(in, out, snap)
	}
	keys, ierr := o.coordinator.Apply(sent, m.cmd.Name, affected)
	if ierr != nil {
		logger.Warn("Invalidation incomplete after successful mutation", zap.Error(ierr))
	}

	message := ""
	if m.cmd.SuccessMessage != nil {
		message = m.cmd.SuccessMessage(in, out)
	}
	if message != "" {
		o.notifier.Success(message)
	}

	entityID := m.entityID(in, out)
	logger.Info("Mutation succeeded", zap.String("entity_id", entityID), zap.Int("invalidated", len(keys)))

	pubCtx, cancel := context.WithTimeout(sent, publishTimeout)
	defer cancel()
	o.publish(pubCtx, m.cmd.EventType, string(m.cmd.Name), entityID, message, keys)

	return out, nil
}

// fail converts err into exactly one error toast and a failure event
func (m *Mutation[In, Out]) fail(ctx context.Context, logger *zap.Logger, entityID string, err error) error {
	message := UserMessage(err, m.cmd.FailureMessage)
	m.orch.notifier.Error(message)
	logger.Debug("Mutation error surfaced", zap.String("message", message))

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	m.orch.publish(pubCtx, models.EventTypeMutationFailed, string(m.cmd.Name), entityID, message, nil)
	return err
}

func (m *Mutation[In, Out]) entityID(in In, out Out) string {
	if m.cmd.EntityID == nil {
		return ""
	}
	return m.cmd.EntityID(in, out)
}

// State returns the pending flag, last error and last result
func (m *Mutation[In, Out]) State() State[Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State[Out]{
		Pending:   m.pending > 0,
		Err:       m.lastErr,
		Result:    m.lastOut,
		HasResult: m.hasResult,
	}
}

func (m *Mutation[In, Out]) IsPending() bool {
	return m.State().Pending
}

// Reset clears the last error and result
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero Out
	m.lastErr = nil
	m.lastOut = zero
	m.hasResult = false
}

// Status is State without the type parameter, for callers that hold many
// mutations side by side
type Status struct {
	Name      string `json:"name"`
	Pending   bool   `json:"pending"`
	Error     string `json:"error,omitempty"`
	HasResult bool   `json:"has_result"`
	Result    any    `json:"result,omitempty"`
}

// Handle is implemented by every Mutation regardless of its types
type Handle interface {
	Name() string
	Status() Status
	Reset()
}

func (m *Mutation[In, Out]) Status() Status {
	st := m.State()
	status := Status{
		Name:      m.Name(),
		Pending:   st.Pending,
		HasResult: st.HasResult,
	}
	if st.Err != nil {
		status.Error = m.Message(st.Err)
	}
	if st.HasResult {
		status.Result = st.Result
	}
	return status
}

// Message is the user-facing text for err as this mutation would toast it
func (m *Mutation[In, Out]) Message(err error) string {
	return UserMessage(err, m.cmd.FailureMessage)
}
