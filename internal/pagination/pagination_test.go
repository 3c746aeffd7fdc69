package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		count    int
		wantPage int
		wantNum  int
	}{
		{name: "missing page", raw: "", count: 12, wantPage: 1, wantNum: 3},
		{name: "not an integer", raw: "abc", count: 12, wantPage: 1, wantNum: 3},
		{name: "decimal", raw: "2.0", count: 12, wantPage: 1, wantNum: 3},
		{name: "in range", raw: "2", count: 12, wantPage: 2, wantNum: 3},
		{name: "padded", raw: " 3 ", count: 12, wantPage: 3, wantNum: 3},
		{name: "past the end", raw: "9999", count: 12, wantPage: 3, wantNum: 3},
		{name: "zero", raw: "0", count: 12, wantPage: 3, wantNum: 3},
		{name: "negative", raw: "-3", count: 12, wantPage: 3, wantNum: 3},
		{name: "empty listing", raw: "5", count: 0, wantPage: 1, wantNum: 1},
		{name: "exact multiple", raw: "2", count: 10, wantPage: 2, wantNum: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Resolve(tt.raw, tt.count, 5)
			assert.Equal(t, tt.wantPage, p.Number)
			assert.Equal(t, tt.wantNum, p.NumPages)
			assert.Equal(t, tt.count, p.Count)
		})
	}
}

func TestPageNavigation(t *testing.T) {
	p := Resolve("2", 12, 5)

	assert.Equal(t, 5, p.Offset())
	assert.True(t, p.HasPrevious())
	assert.True(t, p.HasNext())
	assert.True(t, p.HasOtherPages())
	assert.Equal(t, 1, p.PreviousNumber())
	assert.Equal(t, 3, p.NextNumber())
	assert.Equal(t, []int{1, 2, 3}, p.Range())

	single := Resolve("1", 3, 5)
	assert.False(t, single.HasOtherPages())
	assert.Equal(t, 0, single.Offset())
}
