package invalidation

import (
	"context"

	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Operation names a mutation whose completion invalidates cache keys
type Operation string

const (
	OpCreate      Operation = "create"
	OpCancel      Operation = "cancel"
	OpPause       Operation = "pause"
	OpResume      Operation = "resume"
	OpTransfer    Operation = "transfer"
	OpAwardBadge  Operation = "award_badge"
	OpRevokeBadge Operation = "revoke_badge"
)

// Affected carries the entity identifiers a completed mutation touched.
// TargetClassID is the destination class of a transfer.
type Affected struct {
	EnrollmentID  string
	ChildID       string
	ClassID       string
	TargetClassID string
}

// Keys returns the cache keys a completed operation must mark stale.
//
// Cancel, pause and resume leave class detail alone: seat
// availability catches up on the class's next scheduled refetch. Transfer
// refreshes the destination class only; the source class is picked up
// through the enrollment list.
func Keys(op Operation, a Affected) []querycache.Key {
	var keys []querycache.Key
	add := func(id string, build func(string) querycache.Key) {
		if id != "" {
			keys = append(keys, build(id))
		}
	}

	switch op {
	case OpCreate:
		keys = append(keys, EnrollmentListKey())
		add(a.EnrollmentID, EnrollmentDetailKey)
		add(a.ClassID, ClassDetailKey)
		add(a.ChildID, ChildEnrollmentsKey)
		keys = append(keys, OrderListKey())
	case OpCancel, OpPause, OpResume:
		keys = append(keys, EnrollmentListKey())
		add(a.EnrollmentID, EnrollmentDetailKey)
	case OpTransfer:
		keys = append(keys, EnrollmentListKey())
		add(a.EnrollmentID, EnrollmentDetailKey)
		add(a.TargetClassID, ClassDetailKey)
		add(a.ChildID, ChildEnrollmentsKey)
		keys = append(keys, OrderListKey())
	case OpAwardBadge:
		add(a.ChildID, ChildBadgesKey)
		add(a.EnrollmentID, EnrollmentDetailKey)
	case OpRevokeBadge:
		add(a.ChildID, ChildBadgesKey)
	}
	return keys
}

// Coordinator marks the keys affected by a mutation stale and waits for
// observed ones to refetch
type Coordinator struct {
	store  *querycache.Store
	logger *zap.Logger
}

// NewCoordinator creates a coordinator over store
func NewCoordinator(store *querycache.Store) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Apply invalidates the keys for op and returns them
func (c *Coordinator) Apply(ctx context.Context, op Operation, a Affected) ([]querycache.Key, error) {
	ctx, span := util.StartSpan(ctx, "Coordinator.Apply", attribute.String("operation", string(op)))

	keys := Keys(op, a)
	marked, err := c.store.Invalidate(ctx, keys...)
	util.EndSpan(span, err)
	if err != nil {
		c.logger.Warn("Invalidation refetch interrupted",
			zap.String("operation", string(op)),
			zap.Error(err))
		return keys, err
	}

	c.logger.Debug("Cache keys invalidated",
		zap.String("operation", string(op)),
		zap.Int("requested", len(keys)),
		zap.Int("marked", len(marked)))
	return keys, nil
}

// ApplyKeys invalidates an explicit key set, e.g. one received from a peer
func (c *Coordinator) ApplyKeys(ctx context.Context, keys ...querycache.Key) ([]querycache.Key, error) {
	return c.store.Invalidate(ctx, keys...)
}
