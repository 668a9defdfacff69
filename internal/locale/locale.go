// Package locale provides Turkish-aware case folding and collation.
package locale

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Turkish is the locale every label in the dataset is written in.
var Turkish = language.Turkish

// Lower lower-cases s using the casing rules of tag, so that "I" folds to
// "ı" and "İ" to "i" under Turkish.
func Lower(tag language.Tag, s string) string {
	return cases.Lower(tag).String(s)
}

// Compare returns a comparison function ordering strings by the collation
// rules of tag. The returned function is not safe for concurrent use.
func Compare(tag language.Tag) func(a, b string) int {
	c := collate.New(tag)
	return c.CompareString
}

// Sort orders values in place by the collation rules of tag. The sort is
// stable so exact duplicates keep their order.
func Sort(tag language.Tag, values []string) {
	cmp := Compare(tag)
	sort.SliceStable(values, func(i, j int) bool { return cmp(values[i], values[j]) < 0 })
}
