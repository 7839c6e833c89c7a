package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Where raw frames come from.
 *
 * Description:	Live frames are read from the character device the
 *		modified driver exposes, usually /dev/CSI_dev.  A read
 *		returns one whole report or nothing at all.
 *
 *		Replay frames come from a session log written earlier.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"golang.org/x/sys/unix"
)

const DefaultDevicePath = "/dev/CSI_dev"

const DefaultReadSize = 4096

// FrameSource supplies raw frames.  Next blocks until a frame is available,
// returns ErrNoFrame when there's nothing this time around and io.EOF when
// there will never be anything more.
type FrameSource interface {
	Next(ctx context.Context) (RawFrame, error)
	Close() error
}

// LiveSource reads the CSI device.
type LiveSource struct {
	path string
	fd   int
	buf  []byte
	now  func() time.Time
}

var _ FrameSource = (*LiveSource)(nil)

// OpenLiveSource opens the device for reading.  The driver wants O_RDWR.
func OpenLiveSource(path string, readSize int) (*LiveSource, error) {
	if readSize < HeaderLen {
		return nil, fmt.Errorf("read size %d is smaller than a header", readSize)
	}

	var fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, path, err)
	}

	return &LiveSource{
		path: path,
		fd:   fd,
		buf:  make([]byte, readSize),
		now:  time.Now,
	}, nil
}

func (s *LiveSource) Next(ctx context.Context) (RawFrame, error) {
	var ctxErr = ctx.Err()
	if ctxErr != nil {
		return RawFrame{}, ctxErr
	}

	var n, err = unix.Read(s.fd, s.buf)
	switch {
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
		return RawFrame{}, ErrNoFrame
	case err != nil:
		return RawFrame{}, fmt.Errorf("read %s: %w", s.path, err)
	case n == 0:
		return RawFrame{}, ErrNoFrame
	}

	return RawFrame{
		Kind:      SourceLive,
		Data:      slices.Clone(s.buf[:n]),
		Count:     n,
		Timestamp: CaptureTimestamp(s.now()),
	}, nil
}

func (s *LiveSource) Close() error {
	if s.fd < 0 {
		return nil
	}

	var err = unix.Close(s.fd)
	s.fd = -1

	return err
}

// ReplaySource reads frames back from a session log.
type ReplaySource struct {
	f *os.File
	r *RecordReader
}

var _ FrameSource = (*ReplaySource)(nil)

func OpenReplaySource(path string) (*ReplaySource, error) {
	var f, err = os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	return &ReplaySource{f: f, r: NewRecordReader(f)}, nil
}

func (s *ReplaySource) Next(ctx context.Context) (RawFrame, error) {
	var ctxErr = ctx.Err()
	if ctxErr != nil {
		return RawFrame{}, ctxErr
	}

	var rec, err = s.r.ReadRecord()
	if err != nil {
		return RawFrame{}, err
	}

	return RawFrame{
		Kind:      SourceReplay,
		Data:      rec.Data,
		Count:     len(rec.Data),
		Timestamp: rec.Timestamp,
	}, nil
}

// Truncated is the size of an incomplete record at the end of the log.
func (s *ReplaySource) Truncated() int {
	return s.r.Truncated()
}

func (s *ReplaySource) Close() error {
	return s.f.Close()
}

// ReadAll drains a source that ends, i.e. a replay.  ErrNoFrame is
// skipped over.
func ReadAll(ctx context.Context, src FrameSource) ([]RawFrame, error) {
	var frames []RawFrame

	for {
		var raw, err = src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return frames, nil
		case errors.Is(err, ErrNoFrame):
			continue
		case err != nil:
			return frames, err
		}

		frames = append(frames, raw)
	}
}
