package csi

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

const DefaultDBThreshold = 20.0

// Stand-in for log10(0).  A stream containing one of these has infinite
// range, so it never counts as stable.
const zeroMagnitudeDB = -math.MaxFloat64

// StabilityVector has one flag per antenna pair.
type StabilityVector []bool

// Decibels converts one stream to 20*log10(|s|).
func Decibels(stream []complex128) []float64 {
	var db = make([]float64, len(stream))

	for i, s := range stream {
		var mag = cmplx.Abs(s)
		if mag == 0 {
			db[i] = zeroMagnitudeDB
			continue
		}

		db[i] = 20 * math.Log10(mag)
	}

	return db
}

// DecibelRange is max - min of a dB series.  Empty series have no range.
func DecibelRange(db []float64) (float64, bool) {
	if len(db) == 0 {
		return 0, false
	}

	var lo = floats.Min(db)
	if lo == zeroMagnitudeDB {
		return math.Inf(1), true
	}

	return floats.Max(db) - lo, true
}

// RangeStable reports whether the spread of a dB series is within threshold.
func RangeStable(db []float64, threshold float64) bool {
	var r, ok = DecibelRange(db)

	return ok && r <= threshold
}

/*-------------------------------------------------------------------
 *
 * Name:	Stability
 *
 * Purpose:	Flag each antenna pair whose subcarrier magnitudes
 *		stay within threshold dB of each other.
 *
 * Inputs:	m		- Decoded samples.
 *		threshold	- Allowed max - min, in dB.
 *
 *--------------------------------------------------------------------*/

func Stability(m SampleMatrix, threshold float64) StabilityVector {
	var v = make(StabilityVector, len(m))

	for i, stream := range m {
		v[i] = RangeStable(Decibels(stream), threshold)
	}

	return v
}

// SubcarrierSpacingMHz is the 802.11n 20 MHz channel tone spacing.
const SubcarrierSpacingMHz = 0.3125

// SubcarrierFrequencies gives the offset of each tone from the channel
// centre, in MHz, for n tones centred on zero.
func SubcarrierFrequencies(n int) []float64 {
	var f = make([]float64, n)

	for i := range f {
		f[i] = (float64(i) - float64(n)/2) * SubcarrierSpacingMHz
	}

	return f
}
