package task

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Codec encodes tasks for the entity store. Decode applies the same rules as
// New so a stored record that breaks an invariant is rejected or repaired.
type Codec struct{}

func (Codec) Encode(t Task) (json.RawMessage, error) {
	return json.Marshal(t)
}

func (Codec) Decode(raw json.RawMessage) (Task, error) {
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}

	if t.ID == "" {
		return Task{}, ErrMissingID
	}
	title, err := normalizeTitle(t.Title)
	if err != nil {
		return Task{}, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Title = title
	t.OwnerID = strings.TrimSpace(t.OwnerID)
	if t.OwnerID == "" {
		return Task{}, fmt.Errorf("task %s: %w", t.ID, ErrMissingOwner)
	}
	if checkHours(t.EstimatedHours) != nil || checkHours(t.ActualHours) != nil {
		return Task{}, fmt.Errorf("task %s: %w", t.ID, ErrNegativeHours)
	}

	if t.AssigneeID == "" {
		t.AssigneeID = t.OwnerID
	}
	t.Category = ParseCategory(string(t.Category))
	t.Priority = ParsePriority(string(t.Priority))
	t.Status = ParseStatus(string(t.Status))
	t.Tags = NormalizeTags(t.Tags)
	t.Dependencies = normalizeDependencies(t.ID, t.Dependencies)
	if t.Notes == nil {
		t.Notes = []Note{}
	}

	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	switch {
	case t.Status != StatusCompleted:
		t.CompletedAt = nil
	case t.CompletedAt == nil:
		c := t.UpdatedAt
		t.CompletedAt = &c
	default:
		c := t.CompletedAt.UTC()
		t.CompletedAt = &c
	}

	return t, nil
}
