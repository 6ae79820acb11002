package model

import "time"

// Status is the task lifecycle flag.
type Status string

const (
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// Valid reports whether s is one of the two stored states.
func (s Status) Valid() bool {
	return s == StatusDoing || s == StatusDone
}

// Toggle flips doing to done; anything else goes back to doing.
func (s Status) Toggle() Status {
	if s == StatusDoing {
		return StatusDone
	}
	return StatusDoing
}

type Task struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// String is used in toggle messages, e.g. "Buy milk completed".
func (t Task) String() string {
	return t.Title
}
