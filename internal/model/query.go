package model

import (
	"math"
	"sort"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

type SortField string

const (
	SortByID        SortField = "id"
	SortByTitle     SortField = "title"
	SortByUserID    SortField = "userid"
	SortByCompleted SortField = "completed"
)

// Query describes one page of a filtered, sorted assignment listing.
// The store pushes it down to SQL; Apply evaluates it in memory. The two agree
// for ASCII titles only: SQLite's LOWER folds ASCII letters, strings.ToLower
// folds all of Unicode.
type Query struct {
	Page     int
	PageSize int
	Title    string
	Sort     string
	Order    string
}

// Normalize fills defaults and canonicalizes sort and order. Unknown sort
// fields fall back to ascending by id.
func (q Query) Normalize() Query {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.Title = strings.TrimSpace(q.Title)

	field := ParseSortField(q.Sort)
	q.Sort = string(field)
	if field == SortByID || !strings.EqualFold(strings.TrimSpace(q.Order), "desc") {
		q.Order = "asc"
	} else {
		q.Order = "desc"
	}
	return q
}

// Offset returns the number of rows before the page. ok is false when the
// offset does not fit in an int; such a page is past any stored data.
func (q Query) Offset() (offset int, ok bool) {
	n := q.Normalize()
	if n.Page-1 > math.MaxInt/n.PageSize {
		return 0, false
	}
	return (n.Page - 1) * n.PageSize, true
}

func (q Query) Descending() bool {
	return q.Normalize().Order == "desc"
}

func ParseSortField(value string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(value))) {
	case SortByTitle:
		return SortByTitle
	case SortByUserID:
		return SortByUserID
	case SortByCompleted:
		return SortByCompleted
	default:
		return SortByID
	}
}

func (q Query) Matches(assignment Assignment) bool {
	title := strings.TrimSpace(q.Title)
	if title == "" {
		return true
	}
	return strings.Contains(strings.ToLower(assignment.Title), strings.ToLower(title))
}

// Less orders two assignments by the query's sort key, breaking ties by id in
// the same direction.
func (q Query) Less(a, b Assignment) bool {
	n := q.Normalize()
	cmp := compareKey(SortField(n.Sort), a, b)
	if cmp == 0 {
		cmp = compareInt(a.ID, b.ID)
	}
	if n.Order == "desc" {
		return cmp > 0
	}
	return cmp < 0
}

// Apply filters, sorts and pages assignments without touching the input slice.
func (q Query) Apply(assignments []Assignment) []Assignment {
	n := q.Normalize()

	matched := make([]Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		if n.Matches(assignment) {
			matched = append(matched, assignment)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return n.Less(matched[i], matched[j])
	})

	offset, ok := n.Offset()
	if !ok || offset >= len(matched) {
		return []Assignment{}
	}
	end := min(offset+n.PageSize, len(matched))
	return matched[offset:end]
}

func compareKey(field SortField, a, b Assignment) int {
	switch field {
	case SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortByUserID:
		return compareInt(a.UserID, b.UserID)
	case SortByCompleted:
		return compareInt(boolRank(a.Completed), boolRank(b.Completed))
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolRank(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
