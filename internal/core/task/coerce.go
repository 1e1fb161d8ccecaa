package task

import (
	"errors"
	"slices"
	"strings"
)

var (
	ErrEmptyTitle        = errors.New("task title is required")
	ErrMissingOwner      = errors.New("task owner is required")
	ErrMissingID         = errors.New("task id is required")
	ErrNegativeHours     = errors.New("hours must not be negative")
	ErrSelfDependency    = errors.New("task cannot depend on itself")
	ErrUnknownDependency = errors.New("dependency does not exist")
	ErrEmptyNote         = errors.New("note content is required")
)

// ParseCategory returns the category named by s, or CategoryPersonal when s
// is not a known category.
func ParseCategory(s string) Category {
	c := Category(strings.TrimSpace(s))
	if slices.Contains(Categories, c) {
		return c
	}
	return CategoryPersonal
}

// ParsePriority returns the priority named by s, or PriorityMedium.
func ParsePriority(s string) Priority {
	p := Priority(strings.TrimSpace(s))
	if slices.Contains(Priorities, p) {
		return p
	}
	return PriorityMedium
}

// ParseStatus returns the status named by s, or StatusPending.
func ParseStatus(s string) Status {
	st := Status(strings.TrimSpace(s))
	if slices.Contains(Statuses, st) {
		return st
	}
	return StatusPending
}

// NormalizeTags lowercases and trims every tag, dropping empty ones and
// duplicates while keeping first-seen order. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

func checkHours(h float64) error {
	if h < 0 {
		return ErrNegativeHours
	}
	return nil
}

// normalizeDependencies drops empty ids, self references and duplicates.
func normalizeDependencies(self string, deps []string) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d == "" || d == self || slices.Contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
