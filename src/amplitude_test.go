package csi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_Decibels(t *testing.T) {
	var db = Decibels([]complex128{10, complex(0, 100), complex(3, 4), 0})

	assert.InDelta(t, 20.0, db[0], 1e-9)
	assert.InDelta(t, 40.0, db[1], 1e-9)
	assert.InDelta(t, 20*math.Log10(5), db[2], 1e-9)
	assert.Equal(t, zeroMagnitudeDB, db[3])
}

func Test_RangeStable(t *testing.T) {
	assert.True(t, RangeStable([]float64{10, 15, 12}, 20))
	assert.False(t, RangeStable([]float64{10, 35, 12}, 20))

	// Boundary is inclusive.
	assert.True(t, RangeStable([]float64{0, 20}, 20))
	assert.True(t, RangeStable([]float64{7}, 0))

	assert.False(t, RangeStable(nil, 20))
	assert.False(t, RangeStable([]float64{10, zeroMagnitudeDB}, 1e300))
}

func Test_DecibelRange(t *testing.T) {
	var r, ok = DecibelRange([]float64{10, 35, 12})
	assert.True(t, ok)
	assert.InDelta(t, 25.0, r, 1e-9)

	r, ok = DecibelRange([]float64{3, zeroMagnitudeDB})
	assert.True(t, ok)
	assert.True(t, math.IsInf(r, 1))

	_, ok = DecibelRange(nil)
	assert.False(t, ok)
}

func Test_Stability(t *testing.T) {
	// Magnitudes chosen to land exactly on whole dB values.
	var db = func(values ...float64) []complex128 {
		var s = make([]complex128, len(values))
		for i, v := range values {
			s[i] = complex(math.Pow(10, v/20), 0)
		}

		return s
	}

	var m = SampleMatrix{
		db(10, 15, 12),
		db(10, 35, 12),
		{100, 0, 100},
		{},
	}

	assert.Equal(t, StabilityVector{true, false, false, false}, Stability(m, DefaultDBThreshold))
	assert.Equal(t, StabilityVector{true, false}, Stability(m[:2], 20))
	assert.False(t, Trigger{Streams: 2}.Decide(Stability(m[:2], 20)))
	assert.Equal(t, StabilityVector{true, true, false, false}, Stability(m, 30))
}

func Test_Stability_constantStream(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var mag = rapid.Float64Range(1, 1e6).Draw(t, "mag")
		var n = rapid.IntRange(1, 64).Draw(t, "n")

		var s = make([]complex128, n)
		for i := range s {
			s[i] = complex(mag, 0)
		}

		assert.Equal(t, StabilityVector{true}, Stability(SampleMatrix{s}, 0))
	})
}

func Test_SubcarrierFrequencies(t *testing.T) {
	assert.Equal(t, []float64{-0.625, -0.3125, 0, 0.3125}, SubcarrierFrequencies(4))
	assert.Empty(t, SubcarrierFrequencies(0))
}
