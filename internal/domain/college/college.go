// Package college maps a predicted rank to the colleges it qualifies for.
package college

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/rankpredictor/internal/domain/model"
)

// Category is a reservation category of the cutoff table.
type Category string

// Known categories.
const (
	General Category = "general"
	SC      Category = "sc"
	ST      Category = "st"
	OBC     Category = "obc"
)

// Categories lists the known categories in table order.
func Categories() []Category { return []Category{General, SC, ST, OBC} }

// ParseCategory accepts a category name case-insensitively. Empty means general.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return General, nil
	}
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q: %w", s, model.ErrInvalidInput)
}

// Cutoff is the worst rank a college admitted for one category and year.
type Cutoff struct {
	College  string   `json:"college" koanf:"college"`
	Location string   `json:"location,omitempty" koanf:"location"`
	Category Category `json:"category" koanf:"category"`
	Year     int      `json:"year" koanf:"year"`
	Rank     int      `json:"rank" koanf:"rank"`
}

// Table is an immutable set of cutoffs.
type Table struct {
	cutoffs []Cutoff
}

// NewTable copies cutoffs into a table. Entries with an empty category are
// treated as general.
func NewTable(cutoffs []Cutoff) *Table {
	t := &Table{cutoffs: make([]Cutoff, len(cutoffs))}
	copy(t.cutoffs, cutoffs)
	for i := range t.cutoffs {
		if t.cutoffs[i].Category == "" {
			t.cutoffs[i].Category = General
		}
	}
	return t
}

// Cutoffs returns a copy of the table entries.
func (t *Table) Cutoffs() []Cutoff {
	out := make([]Cutoff, len(t.cutoffs))
	copy(out, t.cutoffs)
	return out
}

// Len reports the number of entries.
func (t *Table) Len() int { return len(t.cutoffs) }

// Query selects the category and year to match against.
type Query struct {
	Category Category
	// Year selects a cutoff year; zero uses the latest year per college.
	Year int
}

// Eligible lists the colleges whose cutoff admits rank, most selective
// first. Ties on cutoff are ordered by name.
func Eligible(rank int, table *Table, q Query) []string {
	out := []string{}
	if table == nil {
		return out
	}
	if q.Category == "" {
		q.Category = General
	}

	// Pick one cutoff per college for the requested category.
	chosen := make(map[string]Cutoff)
	for _, c := range table.cutoffs {
		if c.Category != q.Category {
			continue
		}
		if q.Year != 0 && c.Year != q.Year {
			continue
		}
		prev, ok := chosen[c.College]
		if !ok || c.Year > prev.Year {
			chosen[c.College] = c
		}
	}

	picked := make([]Cutoff, 0, len(chosen))
	for _, c := range chosen {
		if rank <= c.Rank {
			picked = append(picked, c)
		}
	}
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].Rank != picked[j].Rank {
			return picked[i].Rank < picked[j].Rank
		}
		return picked[i].College < picked[j].College
	})
	for _, c := range picked {
		out = append(out, c.College)
	}
	return out
}
