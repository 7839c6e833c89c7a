package csi

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ProcessAll_matchesSerial(t *testing.T) {
	var rng = testRand()

	var frames []RawFrame
	for i := range 50 {
		var payload = PingPayloadSize
		if i%7 == 0 {
			payload = 100
		}

		frames = append(frames, liveFrame(testFrame(t, rng, payload, i%3 != 0, i%2 == 0)))
	}

	frames = append(frames, liveFrame(make([]byte, 3)))

	var s = NewSession(nil, DefaultConfig(), DiscardLogger())

	var results, err = s.ProcessAll(context.Background(), frames, 4)
	require.NoError(t, err)
	require.Len(t, results, len(frames))

	for i, raw := range frames {
		var frame, decision, processErr = s.Process(raw)

		assert.Equal(t, decision, results[i].Decision, "frame %d", i)
		assert.Equal(t, processErr, results[i].Err, "frame %d", i)
		assert.Equal(t, frame, results[i].Frame, "frame %d", i)
		assert.Equal(t, raw, results[i].Raw, "frame %d", i)
	}

	require.ErrorIs(t, results[len(results)-1].Err, ErrTruncatedHeader)
}

func Test_ProcessAll_cancelled(t *testing.T) {
	var frames = []RawFrame{liveFrame(testFrame(t, testRand(), PingPayloadSize, true, true))}

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var s = NewSession(nil, DefaultConfig(), DiscardLogger())

	var _, err = s.ProcessAll(ctx, frames, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func Test_Session_Process_concurrent(t *testing.T) {
	var raw = liveFrame(testFrame(t, testRand(), PingPayloadSize, true, true))

	// Not from NewSession: Resolution, Metrics and Logger are left empty.
	var s = &Session{Threshold: DefaultDBThreshold, Trigger: Trigger{Streams: 2}} //nolint:exhaustruct

	const workers = 8

	var wg sync.WaitGroup

	var decisions = make([]bool, workers)
	var errs = make([]error, workers)

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, decisions[i], errs[i] = s.Process(raw)
		}()
	}

	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.True(t, decisions[i])
	}

	assert.Equal(t, DefaultResolution, s.Resolution)
	assert.InDelta(t, float64(workers), testutil.ToFloat64(s.Metrics.FramesDecoded), 0)
}
