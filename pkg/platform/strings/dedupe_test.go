package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "trims whitespace", input: []string{"  k1:9092 ", "k2:9092"}, expected: []string{"k1:9092", "k2:9092"}},
		{name: "drops repeats in order", input: []string{"b", "a", "b", "a"}, expected: []string{"b", "a"}},
		{name: "drops blanks", input: []string{"", "  ", "a"}, expected: []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , "))
	assert.Equal(t, []string{"process_admin", "reader"}, SplitList("process_admin, reader,process_admin"))
}
