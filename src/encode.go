package csi

// Inverse of the decoder.  Used by csi-gen to make synthetic sessions
// and by the tests.

import (
	"encoding/binary"
	"fmt"
	"math"
)

type bitWriter struct {
	out   []byte
	acc   uint64
	nbits int
}

func (w *bitWriter) put(v int64, resolution int) {
	w.acc |= (uint64(v) & (uint64(1)<<resolution - 1)) << w.nbits
	w.nbits += resolution

	for w.nbits >= 16 {
		w.out = binary.LittleEndian.AppendUint16(w.out, uint16(w.acc))
		w.acc >>= 16
		w.nbits -= 16
	}
}

func (w *bitWriter) flush() []byte {
	if w.nbits > 0 {
		w.out = binary.LittleEndian.AppendUint16(w.out, uint16(w.acc))
		w.acc = 0
		w.nbits = 0
	}

	return w.out
}

func componentFits(x float64, resolution int) bool {
	var lo = -math.Ldexp(1, resolution-1)
	var hi = math.Ldexp(1, resolution-1) - 1

	return x == math.Trunc(x) && x >= lo && x <= hi
}

/*-------------------------------------------------------------------
 *
 * Name:	PackSamples
 *
 * Purpose:	Pack a sample matrix the way the driver does.
 *
 * Inputs:	m		- nr*nc streams of numTones samples each.
 *		nr, nc		- Antenna counts.
 *		resolution	- Bits per component.
 *
 * Returns:	Bitstream padded out to a whole 16 bit word.
 *		Error if a component isn't an integer that fits.
 *
 *--------------------------------------------------------------------*/

func PackSamples(m SampleMatrix, nr, nc int, resolution int) ([]byte, error) {
	if resolution < 1 || resolution > MaxResolution {
		return nil, fmt.Errorf("bit resolution %d out of range 1-%d", resolution, MaxResolution)
	}

	if len(m) != nr*nc {
		return nil, fmt.Errorf("have %d streams, nr=%d nc=%d needs %d", len(m), nr, nc, nr*nc)
	}

	var numTones = 0
	if len(m) > 0 {
		numTones = len(m[0])
	}

	var w bitWriter

	for tone := range numTones {
		for tx := range nc {
			for rx := range nr {
				var stream = m[tx*nr+rx]
				if len(stream) != numTones {
					return nil, fmt.Errorf("stream %d has %d tones, expected %d", tx*nr+rx, len(stream), numTones)
				}

				var s = stream[tone]
				if !componentFits(real(s), resolution) || !componentFits(imag(s), resolution) {
					return nil, fmt.Errorf("sample %v at stream %d tone %d doesn't fit in %d bits", s, tx*nr+rx, tone, resolution)
				}

				w.put(int64(imag(s)), resolution)
				w.put(int64(real(s)), resolution)
			}
		}
	}

	return w.flush(), nil
}

/*-------------------------------------------------------------------
 *
 * Name:	BuildFrame
 *
 * Purpose:	Assemble a complete device buffer.
 *
 * Inputs:	h	- Header.  CSILen, PayloadLen and BufLen are
 *			  filled in from the other arguments.
 *		samples	- Packed sample section.
 *		payload	- Received packet payload.
 *
 * Returns:	status block, payload length, samples, payload, buffer length.
 *
 *--------------------------------------------------------------------*/

func BuildFrame(h FrameHeader, samples []byte, payload []byte) ([]byte, error) {
	var total = HeaderLen + len(samples) + len(payload) + 2
	if total > math.MaxUint16 {
		return nil, fmt.Errorf("frame of %d bytes is too long", total)
	}

	h.CSILen = uint16(len(samples))
	h.PayloadLen = uint16(len(payload))
	h.BufLen = uint16(total)

	var buf = make([]byte, HeaderLen, total)
	for _, f := range headerFields {
		f.insert(&h, buf)
	}

	buf = append(buf, samples...)
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint16(buf, h.BufLen)

	return buf, nil
}
