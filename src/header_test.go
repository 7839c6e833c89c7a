package csi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_ParseHeader_offsets(t *testing.T) {
	var buf = make([]byte, 40)

	binary.LittleEndian.PutUint64(buf[0:], 0x0102030405060708)
	binary.LittleEndian.PutUint16(buf[8:], 12)
	binary.LittleEndian.PutUint16(buf[10:], 2437)

	for i := 12; i < StatusLen; i++ {
		buf[i] = byte(0x40 + i)
	}

	binary.LittleEndian.PutUint16(buf[23:], 766)
	binary.LittleEndian.PutUint16(buf[38:], 0xBEEF)

	var h, err = ParseHeader(buf, len(buf))
	require.NoError(t, err)

	assert.Equal(t, uint64(0x0102030405060708), h.TSF)
	assert.Equal(t, uint16(12), h.CSILen)
	assert.Equal(t, uint16(2437), h.Channel)
	assert.Equal(t, uint8(0x4c), h.PhyErr)
	assert.Equal(t, uint8(0x4d), h.Noise)
	assert.Equal(t, uint8(0x4e), h.Rate)
	assert.Equal(t, uint8(0x4f), h.ChanBW)
	assert.Equal(t, uint8(0x50), h.NumTones)
	assert.Equal(t, uint8(0x51), h.NR)
	assert.Equal(t, uint8(0x52), h.NC)
	assert.Equal(t, uint8(0x53), h.RSSI)
	assert.Equal(t, uint8(0x54), h.RSSI0)
	assert.Equal(t, uint8(0x55), h.RSSI1)
	assert.Equal(t, uint8(0x56), h.RSSI2)
	assert.Equal(t, uint16(766), h.PayloadLen)
	assert.Equal(t, uint16(0xBEEF), h.BufLen)
	assert.Empty(t, h.Timestamp)
}

func Test_ParseHeader_bufLenFromReadCount(t *testing.T) {
	var buf = make([]byte, 100)
	binary.LittleEndian.PutUint16(buf[28:], 30)
	binary.LittleEndian.PutUint16(buf[98:], 999)

	var h, err = ParseHeader(buf, 30)
	require.NoError(t, err)
	assert.Equal(t, uint16(30), h.BufLen)
}

func Test_ParseHeader_truncated(t *testing.T) {
	for _, n := range []int{0, 1, StatusLen, HeaderLen - 1} {
		var _, err = ParseHeader(make([]byte, 64), n)
		require.ErrorIs(t, err, ErrTruncatedHeader, "n=%d", n)
	}

	// n larger than the buffer counts only what is there.
	var _, err = ParseHeader(make([]byte, 10), 64)
	require.ErrorIs(t, err, ErrTruncatedHeader)

	var _, okErr = ParseHeader(make([]byte, HeaderLen), HeaderLen)
	require.NoError(t, okErr)
}

func Test_BuildFrame_parsesBack(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var h = FrameHeader{ //nolint:exhaustruct
			TSF:      rapid.Uint64().Draw(t, "tsf"),
			Channel:  rapid.Uint16().Draw(t, "channel"),
			Rate:     rapid.Uint8().Draw(t, "rate"),
			NumTones: rapid.Uint8().Draw(t, "tones"),
			NR:       rapid.Uint8().Draw(t, "nr"),
			NC:       rapid.Uint8().Draw(t, "nc"),
			RSSI:     rapid.Uint8().Draw(t, "rssi"),
		}
		var samples = rapid.SliceOfN(rapid.Byte(), 0, 200).Draw(t, "samples")
		var payload = rapid.SliceOfN(rapid.Byte(), 0, 800).Draw(t, "payload")

		var buf, err = BuildFrame(h, samples, payload)
		require.NoError(t, err)

		var got, parseErr = ParseHeader(buf, len(buf))
		require.NoError(t, parseErr)

		assert.Equal(t, h.TSF, got.TSF)
		assert.Equal(t, h.Channel, got.Channel)
		assert.Equal(t, h.NumTones, got.NumTones)
		assert.Equal(t, h.NR, got.NR)
		assert.Equal(t, h.NC, got.NC)
		assert.Equal(t, uint16(len(samples)), got.CSILen)
		assert.Equal(t, uint16(len(payload)), got.PayloadLen)
		assert.Equal(t, uint16(len(buf)), got.BufLen)
		assert.Equal(t, samples, buf[HeaderLen:HeaderLen+len(samples)])
	})
}

func Test_FrameHeader_RequiredBits(t *testing.T) {
	var h = FrameHeader{NR: 2, NC: 1, NumTones: 56} //nolint:exhaustruct

	assert.Equal(t, 2, h.Streams())
	assert.Equal(t, 2*56*2*10, h.RequiredBits(10))
}
