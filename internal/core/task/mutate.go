package task

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateParams holds the caller-supplied fields of a new task. Enumerated
// fields are coerced; unknown values fall back to their defaults.
type CreateParams struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	OwnerID        string     `json:"ownerId"`
	AssigneeID     string     `json:"assigneeId"`
	Category       string     `json:"category"`
	Tags           []string   `json:"tags"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours float64    `json:"estimatedHours"`
}

// New builds a validated task.
func New(p CreateParams, id string, now time.Time) (Task, error) {
	title, err := normalizeTitle(p.Title)
	if err != nil {
		return Task{}, err
	}
	owner := strings.TrimSpace(p.OwnerID)
	if owner == "" {
		return Task{}, ErrMissingOwner
	}
	if err := checkHours(p.EstimatedHours); err != nil {
		return Task{}, err
	}

	now = now.UTC()
	t := Task{
		ID:             id,
		Title:          title,
		Description:    strings.TrimSpace(p.Description),
		OwnerID:        owner,
		AssigneeID:     strings.TrimSpace(p.AssigneeID),
		Category:       ParseCategory(p.Category),
		Tags:           NormalizeTags(p.Tags),
		Priority:       ParsePriority(p.Priority),
		Status:         ParseStatus(p.Status),
		CreatedAt:      now,
		UpdatedAt:      now,
		EstimatedHours: p.EstimatedHours,
		Notes:          []Note{},
		Dependencies:   []string{},
	}
	if t.AssigneeID == "" {
		t.AssigneeID = owner
	}
	if p.DueDate != nil {
		d := p.DueDate.UTC()
		t.DueDate = &d
	}
	if t.Status == StatusCompleted {
		t.CompletedAt = &now
	}
	return t, nil
}

func (t *Task) touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

// SetTitle replaces the title. A blank title is rejected.
func (t *Task) SetTitle(title string, now time.Time) error {
	title, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	t.Title = title
	t.touch(now)
	return nil
}

func (t *Task) SetDescription(desc string, now time.Time) {
	t.Description = strings.TrimSpace(desc)
	t.touch(now)
}

func (t *Task) SetCategory(c string, now time.Time) {
	t.Category = ParseCategory(c)
	t.touch(now)
}

func (t *Task) SetPriority(p string, now time.Time) {
	t.Priority = ParsePriority(p)
	t.touch(now)
}

// SetStatus changes the status. Entering completed stamps CompletedAt,
// staying completed keeps the original stamp and any other status clears it.
func (t *Task) SetStatus(s string, now time.Time) {
	next := ParseStatus(s)
	switch {
	case next == StatusCompleted && t.CompletedAt == nil:
		c := now.UTC()
		t.CompletedAt = &c
	case next != StatusCompleted:
		t.CompletedAt = nil
	}
	t.Status = next
	t.touch(now)
}

func (t *Task) SetDueDate(due time.Time, now time.Time) {
	d := due.UTC()
	t.DueDate = &d
	t.touch(now)
}

func (t *Task) ClearDueDate(now time.Time) {
	t.DueDate = nil
	t.touch(now)
}

// AssignTo changes the assignee. An empty id assigns the task back to its owner.
func (t *Task) AssignTo(userID string, now time.Time) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = t.OwnerID
	}
	t.AssigneeID = userID
	t.touch(now)
}

func (t *Task) SetEstimatedHours(h float64, now time.Time) error {
	if err := checkHours(h); err != nil {
		return err
	}
	t.EstimatedHours = h
	t.touch(now)
	return nil
}

// AddTimeSpent adds to the actual hours. Non-positive values are ignored
// and leave the task untouched.
func (t *Task) AddTimeSpent(h float64, now time.Time) {
	if !(h > 0) {
		return
	}
	t.ActualHours += h
	t.touch(now)
}

func (t *Task) SetTags(tags []string, now time.Time) {
	t.Tags = NormalizeTags(tags)
	t.touch(now)
}

func (t *Task) AddTag(tag string, now time.Time) {
	t.SetTags(append(slices.Clone(t.Tags), tag), now)
}

// RemoveTag deletes tag, compared after normalization.
func (t *Task) RemoveTag(tag string, now time.Time) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	t.Tags = slices.DeleteFunc(slices.Clone(t.Tags), func(s string) bool { return s == tag })
	t.touch(now)
}

// AddNote appends a note and returns it.
func (t *Task) AddNote(content, author string, now time.Time) (Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Note{}, ErrEmptyNote
	}
	n := Note{
		ID:        "note_" + uuid.Must(uuid.NewV7()).String(),
		Content:   content,
		Author:    strings.TrimSpace(author),
		CreatedAt: now.UTC(),
	}
	t.Notes = append(t.Notes, n)
	t.touch(now)
	return n, nil
}

// AddDependency records that t depends on id. Adding an existing dependency
// is a no-op. Whether id names an existing task is checked by the caller.
func (t *Task) AddDependency(id string, now time.Time) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrUnknownDependency
	}
	if id == t.ID {
		return ErrSelfDependency
	}
	if slices.Contains(t.Dependencies, id) {
		return nil
	}
	t.Dependencies = append(t.Dependencies, id)
	t.touch(now)
	return nil
}

// RemoveDependency reports whether id was a dependency.
func (t *Task) RemoveDependency(id string, now time.Time) bool {
	i := slices.Index(t.Dependencies, id)
	if i < 0 {
		return false
	}
	t.Dependencies = slices.Delete(slices.Clone(t.Dependencies), i, i+1)
	t.touch(now)
	return true
}

// Patch is a partial update. Nil fields are left alone. ClearDueDate wins
// over DueDate when both are set.
type Patch struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Category       *string    `json:"category,omitempty"`
	Priority       *string    `json:"priority,omitempty"`
	Status         *string    `json:"status,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	ClearDueDate   bool       `json:"clearDueDate,omitempty"`
	AssigneeID     *string    `json:"assigneeId,omitempty"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	Tags           *[]string  `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply routes each present field through its mutator. On error t may be
// partially modified; callers apply patches to a clone.
func (p Patch) Apply(t *Task, now time.Time) error {
	if p.Title != nil {
		if err := t.SetTitle(*p.Title, now); err != nil {
			return err
		}
	}
	if p.Description != nil {
		t.SetDescription(*p.Description, now)
	}
	if p.Category != nil {
		t.SetCategory(*p.Category, now)
	}
	if p.Priority != nil {
		t.SetPriority(*p.Priority, now)
	}
	if p.Status != nil {
		t.SetStatus(*p.Status, now)
	}
	switch {
	case p.ClearDueDate:
		t.ClearDueDate(now)
	case p.DueDate != nil:
		t.SetDueDate(*p.DueDate, now)
	}
	if p.AssigneeID != nil {
		t.AssignTo(*p.AssigneeID, now)
	}
	if p.EstimatedHours != nil {
		if err := t.SetEstimatedHours(*p.EstimatedHours, now); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		t.SetTags(*p.Tags, now)
	}
	return nil
}
