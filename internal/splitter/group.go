package splitter

import (
	"fmt"
	"time"
)

// GroupKey identifies a calendar month as "YYYY-MM".
type GroupKey string

// KeyOf returns the month key of t.
func KeyOf(t time.Time) GroupKey {
	return GroupKey(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// Bucket holds the rows of one month in input order.
type Bucket struct {
	Key  GroupKey
	Rows []Row
}

// Groups is an insertion-ordered map of month buckets.
type Groups struct {
	buckets []Bucket
	index   map[GroupKey]int

	// Skipped counts rows whose date column was missing or not a date.
	Skipped int
}

func newGroups() *Groups {
	return &Groups{index: make(map[GroupKey]int)}
}

// Group buckets rows by the month of dateColumn. Rows without a valid date
// in that column are dropped. Buckets appear in first-occurrence order and
// rows keep their input order inside a bucket.
func Group(rows []Row, dateColumn string) *Groups {
	g := newGroups()
	for _, row := range rows {
		t, ok := dateValue(row, dateColumn)
		if !ok {
			g.Skipped++
			continue
		}
		g.add(KeyOf(t), row)
	}
	return g
}

func (g *Groups) add(key GroupKey, row Row) {
	i, ok := g.index[key]
	if !ok {
		i = len(g.buckets)
		g.index[key] = i
		g.buckets = append(g.buckets, Bucket{Key: key})
	}
	g.buckets[i].Rows = append(g.buckets[i].Rows, row)
}

// Len returns the number of buckets
func (g *Groups) Len() int { return len(g.buckets) }

// Keys returns the bucket keys in first-occurrence order.
func (g *Groups) Keys() []GroupKey {
	keys := make([]GroupKey, len(g.buckets))
	for i, b := range g.buckets {
		keys[i] = b.Key
	}
	return keys
}

// Buckets returns the buckets in first-occurrence order.
func (g *Groups) Buckets() []Bucket {
	out := make([]Bucket, len(g.buckets))
	copy(out, g.buckets)
	return out
}

// Get returns the bucket for key.
func (g *Groups) Get(key GroupKey) (Bucket, bool) {
	i, ok := g.index[key]
	if !ok {
		return Bucket{}, false
	}
	return g.buckets[i], true
}

// Grouped returns the number of rows placed in a bucket.
func (g *Groups) Grouped() int {
	n := 0
	for _, b := range g.buckets {
		n += len(b.Rows)
	}
	return n
}

func dateValue(row Row, column string) (time.Time, bool) {
	v, ok := row.Get(column)
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return time.Time{}, false
	}
	if y := t.Year(); y < 1 || y > 9999 {
		return time.Time{}, false
	}
	return t, true
}
