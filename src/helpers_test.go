package csi

import (
	"context"
	"io"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testFrame makes a complete device buffer, one transmit antenna and a
// receive antenna per stable flag.
func testFrame(t *testing.T, rng *rand.Rand, payloadLen int, stable ...bool) []byte {
	t.Helper()

	var opts = DefaultSyntheticOptions()
	opts.NR = len(stable)
	opts.NC = 1
	opts.PayloadLen = payloadLen

	var buf, _, err = GenerateFrame(rng, opts, 1, stable)
	require.NoError(t, err)

	return buf
}

func liveFrame(buf []byte) RawFrame {
	return RawFrame{Kind: SourceLive, Data: buf, Count: len(buf), Timestamp: "2020-02-18 14:03:27.123456"}
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2)) //nolint:gosec
}

// sliceSource hands out frames then io.EOF.  A nil Data entry is an empty read.
type sliceSource struct {
	frames []RawFrame
	next   int
	closed bool
}

func (s *sliceSource) Next(ctx context.Context) (RawFrame, error) {
	if ctx.Err() != nil {
		return RawFrame{}, ctx.Err()
	}

	if s.next >= len(s.frames) {
		return RawFrame{}, io.EOF
	}

	var raw = s.frames[s.next]
	s.next++

	if raw.Data == nil {
		return RawFrame{}, ErrNoFrame
	}

	return raw, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// countingTransmitter accepts limit sends then says io.EOF.  failAt, if
// positive, makes that send (1 based) fail.
type countingTransmitter struct {
	sends  int
	limit  int
	failAt int
}

func (c *countingTransmitter) Send(ctx context.Context) error {
	if c.sends >= c.limit {
		return io.EOF
	}

	c.sends++

	if c.sends == c.failAt {
		return io.ErrClosedPipe
	}

	return nil
}

// lockedBuffer is a bytes.Buffer safe for a writer and reader goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)

	return len(p), nil
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return string(b.buf)
}

func testRandSeed(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec
}
