package csi

import "fmt"

// RawFrame is one buffer as handed over by a FrameSource.
type RawFrame struct {
	Kind      SourceKind
	Data      []byte
	Count     int    // Valid bytes in Data.
	Timestamp string // Capture time.
}

// Frame is one decoded CSI report.
type Frame struct {
	Header  FrameHeader
	Samples SampleMatrix
	Stable  StabilityVector // nil until Analyze.
}

// ParseFrame extracts just the header, stamped with the capture time.
func ParseFrame(raw RawFrame) (FrameHeader, error) {
	var h, err = ParseHeader(raw.Data, raw.Count)
	if err != nil {
		return h, err
	}

	h.Timestamp = raw.Timestamp

	return h, nil
}

/*-------------------------------------------------------------------
 *
 * Name:	DecodeFrame
 *
 * Purpose:	Header plus samples for one raw buffer.
 *
 * Description:	The sample section is limited to csi_len bytes so a
 *		bad header can't make us decode the payload.  Live
 *		buffers are decoded in place after the header; replay
 *		hands the decoder just the sample section.
 *
 *--------------------------------------------------------------------*/

func DecodeFrame(raw RawFrame, resolution int) (*Frame, error) {
	var h, err = ParseFrame(raw)
	if err != nil {
		return nil, err
	}

	var count = min(raw.Count, len(raw.Data))
	var end = HeaderLen + int(h.CSILen)

	if end > count {
		return nil, fmt.Errorf("%w: csi_len %d but only %d bytes after header", ErrBufferUnderrun, h.CSILen, count-HeaderLen)
	}

	if need := h.RequiredBits(resolution); need > int(h.CSILen)*8 {
		return nil, fmt.Errorf("%w: nr=%d nc=%d tones=%d need %d bits, csi_len has %d",
			ErrBufferUnderrun, h.NR, h.NC, h.NumTones, need, int(h.CSILen)*8)
	}

	var buf []byte
	var layout Layout

	switch raw.Kind {
	case SourceReplay:
		buf = raw.Data[HeaderLen:end]
		layout = ReplayLayout
	default:
		buf = raw.Data[:end]
		layout = LiveLayout
	}

	var samples, decodeErr = DecodeSamples(buf, int(h.NR), int(h.NC), int(h.NumTones), layout, resolution)
	if decodeErr != nil {
		return nil, decodeErr
	}

	return &Frame{Header: h, Samples: samples, Stable: nil}, nil
}

// Analyze fills in the stability vector.
func (f *Frame) Analyze(threshold float64) StabilityVector {
	f.Stable = Stability(f.Samples, threshold)

	return f.Stable
}
