package invalidation

import (
	"context"
	"testing"
	"time"

	"enrollment-portal/internal/querycache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var affected = Affected{
	EnrollmentID:  "e1",
	ChildID:       "c1",
	ClassID:       "cl1",
	TargetClassID: "cl2",
}

func TestKeysPerOperation(t *testing.T) {
	cases := []struct {
		op   Operation
		want []querycache.Key
	}{
		{OpCreate, []querycache.Key{
			"enrollments:list", "enrollments:detail:e1", "classes:detail:cl1", "children:c1:enrollments", "orders:list",
		}},
		{OpCancel, []querycache.Key{"enrollments:list", "enrollments:detail:e1"}},
		{OpPause, []querycache.Key{"enrollments:list", "enrollments:detail:e1"}},
		{OpResume, []querycache.Key{"enrollments:list", "enrollments:detail:e1"}},
		{OpTransfer, []querycache.Key{
			"enrollments:list", "enrollments:detail:e1", "classes:detail:cl2", "children:c1:enrollments", "orders:list",
		}},
		{OpAwardBadge, []querycache.Key{"children:c1:badges", "enrollments:detail:e1"}},
		{OpRevokeBadge, []querycache.Key{"children:c1:badges"}},
	}

	for _, tc := range cases {
		t.Run(string(tc.op), func(t *testing.T) {
			assert.Equal(t, tc.want, Keys(tc.op, affected))
		})
	}
}

func TestCancelDoesNotTouchClassDetail(t *testing.T) {
	for _, op := range []Operation{OpCancel, OpPause, OpResume} {
		keys := Keys(op, affected)
		assert.NotContains(t, keys, ClassDetailKey("cl1"), op)
		assert.NotContains(t, keys, ClassDetailKey("cl2"), op)
	}
}

func TestTransferSkipsSourceClass(t *testing.T) {
	keys := Keys(OpTransfer, affected)

	assert.Contains(t, keys, ClassDetailKey("cl2"))
	assert.NotContains(t, keys, ClassDetailKey("cl1"))
}

func TestKeysSkipMissingIdentifiers(t *testing.T) {
	keys := Keys(OpCreate, Affected{ClassID: "cl1"})

	assert.Equal(t, []querycache.Key{"enrollments:list", "classes:detail:cl1", "orders:list"}, keys)
}

func TestCoordinatorApplyMarksOnlyRuleKeys(t *testing.T) {
	store := querycache.NewStore(querycache.Config{StaleTime: time.Hour})
	all := []querycache.Key{
		EnrollmentListKey(),
		EnrollmentDetailKey("e1"),
		ClassDetailKey("cl1"),
		ClassDetailKey("cl2"),
		ChildEnrollmentsKey("c1"),
		OrderListKey(),
	}
	for _, k := range all {
		store.SetData(k, struct{}{})
	}

	keys, err := NewCoordinator(store).Apply(context.Background(), OpCancel, affected)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	var stale []querycache.Key
	for _, k := range all {
		if store.IsInvalidated(k) {
			stale = append(stale, k)
		}
	}
	assert.ElementsMatch(t, []querycache.Key{EnrollmentListKey(), EnrollmentDetailKey("e1")}, stale)
}
