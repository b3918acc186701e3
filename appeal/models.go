package appeal

import "time"

// Appeal is a user-submitted complaint tracked until it is resolved or removed.
// It carries no JSON annotations; each presentation layer maps it explicitly.
type Appeal struct {
	ID                 string
	Description        string
	EntryTime          time.Time
	ResolutionDeadline time.Time
	IsResolved         bool
}

// Draft holds the caller-supplied fields of a new appeal.
type Draft struct {
	Description        string    `field:"description" validate:"notblank,min=20,max=500"`
	ResolutionDeadline time.Time `field:"resolutionDeadline" validate:"deadline_window"`
}

// ListOrder selects how active appeals are ordered by resolution deadline.
type ListOrder string

const (
	// OrderNearestFirst puts the most urgent deadline first.
	OrderNearestFirst ListOrder = "nearest_first"
	// OrderLatestFirst puts the furthest deadline first.
	OrderLatestFirst ListOrder = "latest_first"
)
