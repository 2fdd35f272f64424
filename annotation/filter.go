package annotation

import (
	"sort"
)

// Filter selects records by author and type. Empty sets match everything.
type Filter struct {
	Titles []string
	Types  []Type
}

func (f Filter) Match(r *Record) bool {
	if len(f.Titles) > 0 && !containsString(f.Titles, r.Title) {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if t == r.Type {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func FilterRecords(records []*Record, f Filter) []*Record {
	out := make([]*Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Titles returns the distinct authors of records and their replies, sorted.
func Titles(records []*Record) []string {
	seen := map[string]bool{}
	for _, r := range records {
		if r.Title != "" {
			seen[r.Title] = true
		}
		for _, c := range r.Comments {
			if c.Title != "" {
				seen[c.Title] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ByPage orders records by page, then top to bottom, then left to right.
type ByPage []*Record

func (a ByPage) Len() int { return len(a) }
func (a ByPage) Less(i, j int) bool {
	if a[i].PageNumber != a[j].PageNumber {
		return a[i].PageNumber < a[j].PageNumber
	}
	if a[i].Rect.Y != a[j].Rect.Y {
		return a[i].Rect.Y < a[j].Rect.Y
	}
	return a[i].Rect.X < a[j].Rect.X
}
func (a ByPage) Swap(i, j int) { a[i], a[j] = a[j], a[i] }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
