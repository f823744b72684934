package invalidation

import "enrollment-portal/internal/querycache"

// EnrollmentListKey is the parent's enrollment list
func EnrollmentListKey() querycache.Key {
	return querycache.NewKey("enrollments", "list")
}

// EnrollmentDetailKey is a single enrollment
func EnrollmentDetailKey(id string) querycache.Key {
	return querycache.NewKey("enrollments", "detail", id)
}

// ClassDetailKey is a single class, including seat availability
func ClassDetailKey(id string) querycache.Key {
	return querycache.NewKey("classes", "detail", id)
}

// ChildEnrollmentsKey is the enrollment list scoped to one child
func ChildEnrollmentsKey(childID string) querycache.Key {
	return querycache.NewKey("children", childID, "enrollments")
}

// OrderListKey is the billing order list
func OrderListKey() querycache.Key {
	return querycache.NewKey("orders", "list")
}

// ChildBadgesKey is the badge awards of one child
func ChildBadgesKey(childID string) querycache.Key {
	return querycache.NewKey("children", childID, "badges")
}
