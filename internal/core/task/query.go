package task

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Criteria selects tasks. Zero-valued fields match everything; set fields
// are combined with AND.
type Criteria struct {
	OwnerID    string   `json:"ownerId,omitempty"`
	AssigneeID string   `json:"assigneeId,omitempty"`
	Category   Category `json:"category,omitempty"`
	Status     Status   `json:"status,omitempty"`
	Priority   Priority `json:"priority,omitempty"`
	Tag        string   `json:"tag,omitempty"`
	Overdue    bool     `json:"overdue,omitempty"`
	DueSoon    bool     `json:"dueSoon,omitempty"`
}

// Matches reports whether t satisfies every set criterion.
func (c Criteria) Matches(t Task, now time.Time) bool {
	switch {
	case c.OwnerID != "" && t.OwnerID != c.OwnerID:
		return false
	case c.AssigneeID != "" && t.AssigneeID != c.AssigneeID:
		return false
	case c.Category != "" && t.Category != c.Category:
		return false
	case c.Status != "" && t.Status != c.Status:
		return false
	case c.Priority != "" && t.Priority != c.Priority:
		return false
	case c.Tag != "" && !slices.Contains(t.Tags, strings.ToLower(strings.TrimSpace(c.Tag))):
		return false
	case c.Overdue && !t.IsOverdue(now):
		return false
	case c.DueSoon && !t.IsDueSoon(now):
		return false
	}
	return true
}

// Filter returns the tasks matching c, preserving input order.
func Filter(tasks []Task, c Criteria, now time.Time) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if c.Matches(t, now) {
			out = append(out, t)
		}
	}
	return out
}

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByPriority  SortField = "priority"
	SortByDueDate   SortField = "dueDate"
	SortByCreatedAt SortField = "createdAt"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// ParseSortField returns the named field, or SortByCreatedAt.
func ParseSortField(s string) SortField {
	switch f := SortField(s); f {
	case SortByTitle, SortByPriority, SortByDueDate, SortByCreatedAt:
		return f
	}
	return SortByCreatedAt
}

// ParseSortOrder returns Asc only for "asc"; anything else sorts descending.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(s, string(Asc)) {
		return Asc
	}
	return Desc
}

// Sort returns a sorted copy of tasks. Tasks without a due date sort last
// under SortByDueDate in either order. Ties are broken by ascending id.
func Sort(tasks []Task, field SortField, order SortOrder) []Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b Task) int {
		c, decided := compareField(a, b, field)
		if !decided && order == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// compareField returns decided=true when the result must not be reversed
// by the sort order.
func compareField(a, b Task, field SortField) (int, bool) {
	switch field {
	case SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)), false
	case SortByPriority:
		return cmp.Compare(a.Priority.Rank(), b.Priority.Rank()), false
	case SortByDueDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0, true
		case a.DueDate == nil:
			return 1, true
		case b.DueDate == nil:
			return -1, true
		}
		return a.DueDate.Compare(*b.DueDate), false
	default:
		return a.CreatedAt.Compare(b.CreatedAt), false
	}
}

// Search returns tasks whose title, description or any tag contains query,
// compared case-insensitively.
func Search(tasks []Task, query string) []Task {
	q := strings.ToLower(query)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if matchesQuery(t, q) {
			out = append(out, t)
		}
	}
	return out
}

func matchesQuery(t Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	return slices.ContainsFunc(t.Tags, func(tag string) bool {
		return strings.Contains(tag, q)
	})
}

// Stats aggregates a task collection.
type Stats struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"byStatus"`
	ByPriority map[Priority]int `json:"byPriority"`
	Overdue    int              `json:"overdue"`
	DueSoon    int              `json:"dueSoon"`
	Completed  int              `json:"completed"`
}

// ComputeStats counts tasks by status and priority along with overdue and
// due-soon totals. ByStatus reports pending, in-progress, blocked and
// completed; cancelled tasks count toward Total only.
func ComputeStats(tasks []Task, now time.Time) Stats {
	s := Stats{
		Total: len(tasks),
		ByStatus: map[Status]int{
			StatusPending:    0,
			StatusInProgress: 0,
			StatusBlocked:    0,
			StatusCompleted:  0,
		},
		ByPriority: make(map[Priority]int, len(Priorities)),
	}
	for _, p := range Priorities {
		s.ByPriority[p] = 0
	}

	for _, t := range tasks {
		if _, tracked := s.ByStatus[t.Status]; tracked {
			s.ByStatus[t.Status]++
		}
		s.ByPriority[t.Priority]++
		if t.IsCompleted() {
			s.Completed++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
		if t.IsDueSoon(now) {
			s.DueSoon++
		}
	}
	return s
}
