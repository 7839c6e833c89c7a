package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Pick apart the status block which the CSI driver puts
 *		in front of every report.
 *
 * Description:	Layout of one read from the CSI device:
 *
 *		   0 .. 22	status block, see headerFields below.
 *		  23 .. 24	payload length.
 *		  25 ..		packed CSI samples, csi_len bytes.
 *		     ..		received payload, payload_len bytes.
 *		 n-2 .. n-1	buffer length.
 *
 *		Everything is little endian.  The buffer length lives at
 *		the end of whatever was read so the caller must supply
 *		the exact read count.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
)

const (
	StatusLen = 23            // Fixed status block.
	HeaderLen = StatusLen + 2 // Status block plus payload length.
)

// FrameHeader is the metadata for one CSI report.
type FrameHeader struct {
	Timestamp string // Capture time as text.  Set by the frame source, not parsed.

	TSF        uint64 // Timestamp from the radio.
	CSILen     uint16
	Channel    uint16
	PhyErr     uint8
	Noise      uint8
	Rate       uint8
	ChanBW     uint8
	NumTones   uint8
	NR         uint8 // Receive antennas.
	NC         uint8 // Transmit antennas.
	RSSI       uint8
	RSSI0      uint8
	RSSI1      uint8
	RSSI2      uint8
	PayloadLen uint16
	BufLen     uint16
}

type headerField struct {
	name   string
	offset int
	width  int                      // bytes
	field  func(h *FrameHeader) any // *uint8, *uint16 or *uint64, matching width
}

// All fixed offsets in one place.  BufLen is not here because it is
// relative to the end of the read.
var headerFields = []headerField{
	{"tsf", 0, 8, func(h *FrameHeader) any { return &h.TSF }},
	{"csi_len", 8, 2, func(h *FrameHeader) any { return &h.CSILen }},
	{"channel", 10, 2, func(h *FrameHeader) any { return &h.Channel }},
	{"phyerr", 12, 1, func(h *FrameHeader) any { return &h.PhyErr }},
	{"noise", 13, 1, func(h *FrameHeader) any { return &h.Noise }},
	{"rate", 14, 1, func(h *FrameHeader) any { return &h.Rate }},
	{"chan_bw", 15, 1, func(h *FrameHeader) any { return &h.ChanBW }},
	{"num_tones", 16, 1, func(h *FrameHeader) any { return &h.NumTones }},
	{"nr", 17, 1, func(h *FrameHeader) any { return &h.NR }},
	{"nc", 18, 1, func(h *FrameHeader) any { return &h.NC }},
	{"rssi", 19, 1, func(h *FrameHeader) any { return &h.RSSI }},
	{"rssi_0", 20, 1, func(h *FrameHeader) any { return &h.RSSI0 }},
	{"rssi_1", 21, 1, func(h *FrameHeader) any { return &h.RSSI1 }},
	{"rssi_2", 22, 1, func(h *FrameHeader) any { return &h.RSSI2 }},
	{"payload_len", StatusLen, 2, func(h *FrameHeader) any { return &h.PayloadLen }},
}

func (f headerField) extract(h *FrameHeader, buf []byte) {
	var p = buf[f.offset : f.offset+f.width]

	switch v := f.field(h).(type) {
	case *uint8:
		*v = p[0]
	case *uint16:
		*v = binary.LittleEndian.Uint16(p)
	case *uint64:
		*v = binary.LittleEndian.Uint64(p)
	default:
		panic(fmt.Sprintf("header field %s has unsupported type %T", f.name, v))
	}
}

func (f headerField) insert(h *FrameHeader, buf []byte) {
	var p = buf[f.offset : f.offset+f.width]

	switch v := f.field(h).(type) {
	case *uint8:
		p[0] = *v
	case *uint16:
		binary.LittleEndian.PutUint16(p, *v)
	case *uint64:
		binary.LittleEndian.PutUint64(p, *v)
	default:
		panic(fmt.Sprintf("header field %s has unsupported type %T", f.name, v))
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	ParseHeader
 *
 * Purpose:	Extract the fixed header fields from a frame buffer.
 *
 * Inputs:	buf	- Frame buffer.
 *		n	- Number of valid bytes in buf, i.e. the read count.
 *			  The buffer length field is the last two of these.
 *
 * Returns:	Header, or ErrTruncatedHeader if n is less than HeaderLen.
 *
 *--------------------------------------------------------------------*/

func ParseHeader(buf []byte, n int) (FrameHeader, error) {
	var h FrameHeader

	n = min(n, len(buf))
	if n < HeaderLen {
		return h, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncatedHeader, n, HeaderLen)
	}

	for _, f := range headerFields {
		f.extract(&h, buf)
	}

	h.BufLen = binary.LittleEndian.Uint16(buf[n-2 : n])

	return h, nil
}

// Streams is the number of antenna pairs, nr * nc.
func (h FrameHeader) Streams() int {
	return int(h.NR) * int(h.NC)
}

// RequiredBits is how many sample bits the header claims are present.
func (h FrameHeader) RequiredBits(resolution int) int {
	return h.Streams() * int(h.NumTones) * 2 * resolution
}
