package csi

import "errors"

var (
	// ErrTruncatedHeader means fewer bytes were available than the fixed
	// header fields need.  The frame is skipped.
	ErrTruncatedHeader = errors.New("truncated CSI header")

	// ErrBufferUnderrun means the sample decoder ran off the end of the
	// buffer, i.e. the header counts don't match the data actually present.
	ErrBufferUnderrun = errors.New("CSI buffer underrun")

	// ErrDeviceUnavailable is returned when the CSI device or a log file
	// can't be opened.  Fatal for the tools.
	ErrDeviceUnavailable = errors.New("CSI device unavailable")

	// ErrNoFrame is a zero byte read from the device.  Not an error as such,
	// just try again on the next tick.
	ErrNoFrame = errors.New("no CSI frame available")
)

// ErrFiltered marks a frame that was acquired but isn't one we analyze,
// i.e. its payload length doesn't match the filter.
var ErrFiltered = errors.New("frame filtered by payload length")
