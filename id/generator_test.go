package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerator(t *testing.T) {
	tt := []struct {
		input  string
		expect string
	}{
		{
			input:  "Never gonna give you up",
			expect: "565a962556ee7e70",
		},
		{
			input:  "pastry",
			expect: "13028c6dcbfb933d",
		},
		{
			input:  "hello",
			expect: "e430ddbbac5cefe4",
		},
	}

	g := NewGenerator()
	for _, tc := range tt {
		t.Run(tc.input, func(t *testing.T) {
			id := g.Get(tc.input)
			assert.Equal(t, tc.expect, id.Digits(64, 16).String())
		})
	}
}
