package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Unpack the CSI sample bitstream.
 *
 * Description:	Each antenna pair gets num_tones complex samples.
 *		Each sample is an imaginary then a real component,
 *		both two's complement, B bits wide, packed LSB first
 *		into little endian 16 bit words with no padding.
 *
 *		Order in the stream is subcarrier, then transmit antenna,
 *		then receive antenna.  Don't change it.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const DefaultResolution = 10

const MaxResolution = 32

// SourceKind says where a raw buffer came from.
type SourceKind int

const (
	SourceLive SourceKind = iota
	SourceReplay
)

func (k SourceKind) String() string {
	switch k {
	case SourceLive:
		return "live"
	case SourceReplay:
		return "replay"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Layout tells the decoder where samples start in the buffer it is given.
type Layout struct {
	Kind   SourceKind
	Offset int
}

var (
	// Device reads carry the status block and payload length in front.
	LiveLayout = Layout{Kind: SourceLive, Offset: HeaderLen}

	// Replay hands over just the sample section of a record.
	ReplayLayout = Layout{Kind: SourceReplay, Offset: 0}
)

// SampleMatrix is indexed by antenna pair (tx*nr + rx) then subcarrier.
type SampleMatrix [][]complex128

type bitReader struct {
	buf      []byte
	pos      int
	acc      uint64
	bitsLeft int
}

func (r *bitReader) refill() error {
	if r.pos+2 > len(r.buf) {
		return fmt.Errorf("%w: need 2 bytes at offset %d, buffer is %d", ErrBufferUnderrun, r.pos, len(r.buf))
	}

	var word = uint64(binary.LittleEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2

	// Leftover bits stay at the bottom, new ones go on top.
	r.acc += word << r.bitsLeft
	r.bitsLeft += 16

	return nil
}

func (r *bitReader) next(resolution int) (int64, error) {
	for r.bitsLeft < resolution {
		var err = r.refill()
		if err != nil {
			return 0, err
		}
	}

	var v = signExtend(r.acc&(uint64(1)<<resolution-1), resolution)

	r.acc >>= resolution
	r.bitsLeft -= resolution

	return v, nil
}

func signExtend(v uint64, bits int) int64 {
	var x = int64(v)
	if v&(uint64(1)<<(bits-1)) != 0 {
		x -= int64(1) << bits
	}

	return x
}

/*-------------------------------------------------------------------
 *
 * Name:	DecodeSamples
 *
 * Purpose:	Turn the packed bitstream into a sample matrix.
 *
 * Inputs:	buf		- Buffer holding the bitstream.
 *		nr, nc		- Receive and transmit antenna counts.
 *		numTones	- Subcarriers per antenna pair.
 *		layout		- Where the samples start in buf.
 *		resolution	- Bits per component.
 *
 * Returns:	nr*nc streams of numTones samples.
 *		ErrBufferUnderrun if buf runs out first.
 *
 * Description:	No state survives between calls, so this is safe to
 *		call from several goroutines on different buffers.
 *
 *--------------------------------------------------------------------*/

func DecodeSamples(buf []byte, nr, nc, numTones int, layout Layout, resolution int) (SampleMatrix, error) {
	if resolution < 1 || resolution > MaxResolution {
		return nil, fmt.Errorf("bit resolution %d out of range 1-%d", resolution, MaxResolution)
	}

	if nr < 0 || nc < 0 || numTones < 0 {
		return nil, fmt.Errorf("negative dimensions nr=%d nc=%d tones=%d", nr, nc, numTones)
	}

	var data = make(SampleMatrix, nr*nc)
	for i := range data {
		data[i] = make([]complex128, numTones)
	}

	if nr*nc == 0 || numTones == 0 {
		return data, nil
	}

	if layout.Offset < 0 || layout.Offset > len(buf) {
		return nil, fmt.Errorf("%w: start offset %d, buffer is %d", ErrBufferUnderrun, layout.Offset, len(buf))
	}

	var r = bitReader{buf: buf, pos: layout.Offset} //nolint:exhaustruct

	var err = r.refill()
	if err != nil {
		return nil, err
	}

	for tone := range numTones {
		for tx := range nc {
			for rx := range nr {
				var im, re int64

				im, err = r.next(resolution)
				if err != nil {
					return nil, err
				}

				re, err = r.next(resolution)
				if err != nil {
					return nil, err
				}

				data[tx*nr+rx][tone] = complex(float64(re), float64(im))
			}
		}
	}

	return data, nil
}
