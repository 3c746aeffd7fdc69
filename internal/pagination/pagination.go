// Package pagination resolves a requested page number against a result
// count. Anything that is not an integer falls back to the first page and
// out-of-range numbers land on the last page, so a listing never fails on a
// bad page parameter.
package pagination

import (
	"strconv"
	"strings"
)

// Page describes one page of a listing.
type Page struct {
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

// Resolve picks the page for the raw query value.
func Resolve(raw string, count, perPage int) Page {
	if perPage < 1 {
		perPage = 1
	}
	if count < 0 {
		count = 0
	}
	numPages := (count + perPage - 1) / perPage
	if numPages < 1 {
		numPages = 1
	}

	p := Page{Number: 1, NumPages: numPages, Count: count, PerPage: perPage}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return p
	}
	if n < 1 || n > numPages {
		n = numPages
	}
	p.Number = n
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

func (p Page) HasPrevious() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.NumPages }

func (p Page) HasOtherPages() bool { return p.HasPrevious() || p.HasNext() }

func (p Page) PreviousNumber() int { return p.Number - 1 }

func (p Page) NextNumber() int { return p.Number + 1 }

// Range lists every page number, for rendering page links.
func (p Page) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
