package csi

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LiveSource(t *testing.T) {
	// A regular file stands in for the device: one read, then nothing.
	var buf = testFrame(t, testRand(), PingPayloadSize, true, true)

	var path = filepath.Join(t.TempDir(), "CSI_dev")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	var src, err = OpenLiveSource(path, DefaultReadSize)
	require.NoError(t, err)

	var when = time.Date(2020, 2, 18, 14, 3, 27, 5000, time.UTC)
	src.now = func() time.Time { return when }

	var raw, nextErr = src.Next(context.Background())
	require.NoError(t, nextErr)
	assert.Equal(t, SourceLive, raw.Kind)
	assert.Equal(t, len(buf), raw.Count)
	assert.Equal(t, buf, raw.Data)
	assert.Equal(t, "2020-02-18 14:03:27.000005", raw.Timestamp)

	var _, emptyErr = src.Next(context.Background())
	require.ErrorIs(t, emptyErr, ErrNoFrame)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

func Test_LiveSource_cancelled(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "CSI_dev")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	var src, err = OpenLiveSource(path, DefaultReadSize)
	require.NoError(t, err)

	defer src.Close()

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var _, nextErr = src.Next(ctx)
	require.ErrorIs(t, nextErr, context.Canceled)
}

func Test_OpenLiveSource_missing(t *testing.T) {
	var _, err = OpenLiveSource(filepath.Join(t.TempDir(), "nope"), DefaultReadSize)
	require.ErrorIs(t, err, ErrDeviceUnavailable)

	var _, sizeErr = OpenLiveSource("/dev/null", 10)
	require.Error(t, sizeErr)
}

func Test_ReplaySource(t *testing.T) {
	var rng = testRand()
	var path = filepath.Join(t.TempDir(), "replay.csilog")

	var f, err = os.Create(path)
	require.NoError(t, err)

	var bufs = [][]byte{
		testFrame(t, rng, PingPayloadSize, true, true),
		testFrame(t, rng, 0, false, true),
	}

	for _, b := range bufs {
		require.NoError(t, WriteRecord(f, b, "2020-02-18 14:03:27.123456"))
	}

	var _, tailErr = f.Write([]byte{1, 2, 3})
	require.NoError(t, tailErr)
	require.NoError(t, f.Close())

	var src, openErr = OpenReplaySource(path)
	require.NoError(t, openErr)

	defer src.Close()

	var frames, readErr = ReadAll(context.Background(), src)
	require.NoError(t, readErr)
	require.Len(t, frames, 2)

	for i, raw := range frames {
		assert.Equal(t, SourceReplay, raw.Kind)
		assert.Equal(t, bufs[i], raw.Data)
		assert.Equal(t, len(bufs[i]), raw.Count)
		assert.Equal(t, "2020-02-18 14:03:27.123456", raw.Timestamp)
	}

	assert.Equal(t, 3, src.Truncated())

	var _, missingErr = OpenReplaySource(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, missingErr, ErrDeviceUnavailable)
}

func Test_ReadAll_skipsEmptyReads(t *testing.T) {
	var src = &sliceSource{frames: []RawFrame{ //nolint:exhaustruct
		{Data: nil}, //nolint:exhaustruct
		liveFrame([]byte("abc")),
		{Data: nil}, //nolint:exhaustruct
	}}

	var frames, err = ReadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}
