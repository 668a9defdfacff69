// Package aggregate holds the pure reducers every dashboard view is built
// from, and the views themselves.
package aggregate

import (
	"math"
	"sort"

	"egitim/internal/core"
)

// Entry is a key with a summed value.
type Entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Count is a key with a distinct-value count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Hours is the default value function: a record's duration.
func Hours(r core.TrainingRecord) float64 { return r.DurationHours }

// SumByKey groups items by key and sums value, returning groups in the
// order their keys were first seen.
func SumByKey[T any](items []T, key func(T) string, value func(T) float64) []Entry {
	index := make(map[string]int)
	out := make([]Entry, 0)
	for _, it := range items {
		k := key(it)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Entry{Name: k})
		}
		out[i].Value += value(it)
	}
	return out
}

// CountUniqueByKey counts distinct unique values per group, in first-seen
// group order.
func CountUniqueByKey[T any](items []T, group func(T) string, unique func(T) string) []Count {
	index := make(map[string]int)
	sets := make([]map[string]struct{}, 0)
	out := make([]Count, 0)
	for _, it := range items {
		g := group(it)
		i, ok := index[g]
		if !ok {
			i = len(out)
			index[g] = i
			out = append(out, Count{Name: g})
			sets = append(sets, make(map[string]struct{}))
		}
		sets[i][unique(it)] = struct{}{}
	}
	for i := range out {
		out[i].Count = len(sets[i])
	}
	return out
}

// CountUnique counts distinct values of fn over items.
func CountUnique[T any](items []T, fn func(T) string) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[fn(it)] = struct{}{}
	}
	return len(seen)
}

// SortDesc stable-sorts entries by score, highest first.
func SortDesc[E any](entries []E, score func(E) float64) {
	sort.SliceStable(entries, func(i, j int) bool { return score(entries[i]) > score(entries[j]) })
}

// TopN returns the n highest-scoring entries. The input is not modified.
func TopN[E any](entries []E, n int, score func(E) float64) []E {
	if n <= 0 {
		return []E{}
	}
	sorted := make([]E, len(entries))
	copy(sorted, entries)
	SortDesc(sorted, score)
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// EntryValue scores an Entry by its value.
func EntryValue(e Entry) float64 { return e.Value }

// RoundTotal rounds a total to a whole number.
func RoundTotal(x float64) float64 { return math.Round(x) }

// RoundPerPerson rounds a per-person or per-unit average to two decimals.
func RoundPerPerson(x float64) float64 { return math.Round(x*100) / 100 }

// Ratio divides total by denom, resolving a zero denominator to 0.
func Ratio(total, denom float64) float64 {
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	return RoundPerPerson(total / denom)
}

// AveragePerPerson is total hours over distinct employees, 0 when there are none.
func AveragePerPerson(total float64, employees int) float64 {
	return Ratio(total, float64(employees))
}

// RoundEntries rounds entry values to whole numbers.
func RoundEntries(entries []Entry) []Entry {
	for i := range entries {
		entries[i].Value = RoundTotal(entries[i].Value)
	}
	return entries
}

// keyOr returns s, or fallback when s is empty.
func keyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func employeeID(r core.TrainingRecord) string { return r.EmployeeID }
func sessionID(r core.TrainingRecord) string  { return r.SessionID }
