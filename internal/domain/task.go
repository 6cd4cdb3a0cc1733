package domain

import "time"

// Task is a single todo item owned by exactly one user. The owner is fixed at
// creation and never reassigned.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
