// Package task defines the Task record and the rules that govern it:
// coercion of enumerated fields, validation, mutators and the
// filter/sort/search/statistics queries run over task collections.
package task

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type (
	Category string
	Priority string
	Status   string
)

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryFinance  Category = "finance"
	CategoryOther    Category = "other"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var (
	Categories = []Category{CategoryWork, CategoryPersonal, CategoryStudy, CategoryHealth, CategoryFinance, CategoryOther}
	Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	Statuses   = []Status{StatusPending, StatusInProgress, StatusBlocked, StatusCompleted, StatusCancelled}
)

// Rank maps a priority to its ordinal, low=1 through urgent=4.
func (p Priority) Rank() int {
	return slices.Index(Priorities, p) + 1
}

// Note is an entry in a task's ordered note log.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a unit of work owned by a user.
//
// Slices are never nil on tasks produced by New or the codec. CompletedAt
// is set exactly when Status is StatusCompleted.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OwnerID        string     `json:"ownerId"`
	AssigneeID     string     `json:"assigneeId"`
	Category       Category   `json:"category"`
	Tags           []string   `json:"tags"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	DueDate        *time.Time `json:"dueDate"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt"`
	EstimatedHours float64    `json:"estimatedHours"`
	ActualHours    float64    `json:"actualHours"`
	Notes          []Note     `json:"notes"`
	Dependencies   []string   `json:"dependencies"`
}

// NewID returns a fresh task id.
func NewID() string {
	return "task_" + uuid.Must(uuid.NewV7()).String()
}

// EntityID implements entity.Entity.
func (t Task) EntityID() string { return t.ID }

// Clone returns a deep copy.
func (t Task) Clone() Task {
	t.Tags = slices.Clone(t.Tags)
	t.Notes = slices.Clone(t.Notes)
	t.Dependencies = slices.Clone(t.Dependencies)
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}

// IsCompleted reports whether the task is in the completed status.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// DaysUntilDue returns the number of calendar days from now until the due
// date, both taken in now's location. ok is false when there is no due date.
func (t Task) DaysUntilDue(now time.Time) (days int, ok bool) {
	if t.DueDate == nil {
		return 0, false
	}
	return calendarDays(now, t.DueDate.In(now.Location())), true
}

// IsOverdue reports whether an unfinished task's due instant has passed.
func (t Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted() || t.DueDate == nil {
		return false
	}
	return now.After(*t.DueDate)
}

// IsDueSoon reports whether the due instant has not passed and falls today or
// within the next three calendar days.
func (t Task) IsDueSoon(now time.Time) bool {
	if t.DueDate == nil || now.After(*t.DueDate) {
		return false
	}
	days, _ := t.DaysUntilDue(now)
	return days <= DueSoonDays
}

// Progress returns actual hours as a percentage of the estimate, capped at 100.
func (t Task) Progress() float64 {
	if t.EstimatedHours <= 0 {
		return 0
	}
	return min(100, t.ActualHours/t.EstimatedHours*100)
}

// DueSoonDays is the upper bound of the due-soon window.
const DueSoonDays = 3

func calendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int((b.Unix() - a.Unix()) / 86400)
}
