package id

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Strings(t *testing.T) {
	nums := []ID{
		Zero,
		101010,
		0xABCDEFFFFF,
		Max,
	}
	for _, n := range nums {
		// Assert that String == Parse
		parsed, err := Parse(n.String())
		require.NoError(t, err, "failed to parse %s", n.String())
		require.Equal(t, n, parsed)
	}
}

// TestID_String_Parse_Many generates a bunch of random numbers and ensures
// String == Parse.
func TestID_String_Parse_Many(t *testing.T) {
	r := rand.New(rand.NewSource(0))

	for i := 0; i < 100_000; i++ {
		want := ID(r.Uint64())

		parsed, err := Parse(want.String())
		require.NoError(t, err)
		require.Equal(t, want, parsed)
	}
}

func TestID_Digits(t *testing.T) {
	tt := []struct {
		id     ID
		size   int
		base   int
		expect string
	}{
		{
			id:     0b1101_1111,
			size:   8,
			base:   2,
			expect: "11011111",
		},
		{
			id:     0b1001_1110,
			size:   8,
			base:   4,
			expect: "2132",
		},
		{
			id:     0o325,
			size:   8,
			base:   8,
			expect: "325",
		},
		{
			id:     0xF1F3,
			size:   16,
			base:   16,
			expect: "f1f3",
		},
		{
			id:     0xDEADBEEF,
			size:   32,
			base:   16,
			expect: "deadbeef",
		},
		{
			id:     0xDEADBEEF_DEADBEEF,
			size:   64,
			base:   16,
			expect: "deadbeefdeadbeef",
		},
	}

	for _, tc := range tt {
		actual := tc.id.Digits(tc.size, tc.base).String()
		assert.Equal(t, tc.expect, actual)
	}
}

func TestID_SharedPrefixLen(t *testing.T) {
	a := ID(0xDEADBEEF).Digits(32, 16)
	b := ID(0xDEADFEED).Digits(32, 16)
	assert.Equal(t, 4, SharedPrefixLen(a, b))

	same := ID(0xFFFF).Digits(16, 16)
	assert.Equal(t, 4, SharedPrefixLen(same, same))
}

func TestID_RingDistance(t *testing.T) {
	tt := []struct {
		a, b   ID
		expect ID
	}{
		{a: 10, b: 20, expect: 10},
		{a: 20, b: 10, expect: 10},
		{a: 0, b: Max, expect: 1},
		{a: 5, b: 5, expect: 0},
	}
	for _, tc := range tt {
		assert.Equal(t, tc.expect, RingDistance(tc.a, tc.b))
	}
}

func BenchmarkDigits(b *testing.B) {
	r := rand.New(rand.NewSource(0))

	bases := []int{2, 4, 8, 16}

	for i := 0; i < b.N; i++ {
		v := ID(r.Uint64())
		_ = v.Digits(64, bases[r.Intn(len(bases))])
	}
}
