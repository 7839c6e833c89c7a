package csi

/*------------------------------------------------------------------
 *
 * Purpose:	The acquire, decode, analyze, decide loop.
 *
 * Description:	One frame is dealt with completely before the next is
 *		requested.  Problems with a single frame are logged and
 *		the frame skipped.  Only failing to get at the device,
 *		log or peer stops the loop.
 *
 *		Cancel the context to stop.  It is looked at before each
 *		read; whatever frame is in hand is finished first.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Session is one run of the loop over a FrameSource.
type Session struct {
	Source        FrameSource
	Resolution    int
	Threshold     float64
	Trigger       Trigger
	PayloadFilter int           // Only analyze frames with this payload length.  0 for all.
	PollInterval  time.Duration // Pause after an empty read.
	PacketSize    int           // For the byte rate in the report.

	Transmitter Transmitter   // nil to just decide.
	Log         *RecordWriter // nil to not log.
	Metrics     *Metrics
	Logger      *log.Logger

	// Only touched by Run, read by Report after Run returns.
	report Report

	defaultsOnce sync.Once
}

// Report summarizes a finished session.
type Report struct {
	FramesRead    int
	FramesDecoded int
	FramesSkipped int
	Positive      int // Decisions to send.
	PacketsSent   int
	Elapsed       time.Duration
}

// SendRate is the covert throughput in bytes per second.
func (r Report) SendRate(packetSize int) float64 {
	if r.Elapsed <= 0 {
		return 0
	}

	return float64(r.PacketsSent*packetSize) / r.Elapsed.Seconds()
}

// NewSession fills in everything but the source, transmitter and log
// from cfg.
func NewSession(src FrameSource, cfg Config, logger *log.Logger) *Session {
	return &Session{
		Source:        src,
		Resolution:    cfg.Decoder.BitResolution,
		Threshold:     cfg.Analysis.DBThreshold,
		Trigger:       Trigger{Streams: cfg.Analysis.TriggerStreams},
		PayloadFilter: cfg.Analysis.PayloadFilter,
		PollInterval:  cfg.Device.PollInterval,
		PacketSize:    cfg.Transmit.PacketSize,
		Transmitter:   nil,
		Log:           nil,
		Metrics:       NewMetrics(),
		Logger:        logger,
		report:        Report{}, //nolint:exhaustruct
		defaultsOnce:  sync.Once{},
	}
}

// defaults fills in zero fields, once, so a Session built by hand can be
// shared between goroutines.  Set the fields before the first Process.
func (s *Session) defaults() {
	s.defaultsOnce.Do(func() {
		if s.Resolution == 0 {
			s.Resolution = DefaultResolution
		}

		if s.Metrics == nil {
			s.Metrics = NewMetrics()
		}

		if s.Logger == nil {
			s.Logger = DiscardLogger()
		}
	})
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrTruncatedHeader):
		return SkipTruncated
	case errors.Is(err, ErrBufferUnderrun):
		return SkipUnderrun
	case errors.Is(err, ErrFiltered):
		return SkipFiltered
	default:
		return SkipOther
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	Process
 *
 * Purpose:	Decode, analyze and decide for one raw frame.
 *
 * Returns:	Frame, the decision, and an error if the frame was
 *		skipped.  The header is returned even for skipped frames
 *		when it could be parsed.
 *
 * Description:	Doesn't touch the report, so it can be used on many
 *		frames at once.
 *
 *--------------------------------------------------------------------*/

func (s *Session) Process(raw RawFrame) (*Frame, bool, error) {
	s.defaults()

	var start = time.Now()

	var h, parseErr = ParseFrame(raw)
	if parseErr != nil {
		s.Metrics.FramesSkipped.WithLabelValues(skipReason(parseErr)).Inc()

		return nil, false, parseErr
	}

	if s.PayloadFilter != 0 && int(h.PayloadLen) != s.PayloadFilter {
		s.Metrics.FramesSkipped.WithLabelValues(SkipFiltered).Inc()

		return &Frame{Header: h, Samples: nil, Stable: nil}, false, fmt.Errorf("%w: payload_len %d", ErrFiltered, h.PayloadLen)
	}

	var frame, decodeErr = DecodeFrame(raw, s.Resolution)
	if decodeErr != nil {
		s.Metrics.FramesSkipped.WithLabelValues(skipReason(decodeErr)).Inc()

		return &Frame{Header: h, Samples: nil, Stable: nil}, false, decodeErr
	}

	var decision = s.Trigger.Decide(frame.Analyze(s.Threshold))

	s.Metrics.FramesDecoded.Inc()
	s.Metrics.DecodeSeconds.Observe(time.Since(start).Seconds())
	s.Metrics.Decisions.WithLabelValues(fmt.Sprint(decision)).Inc()

	return frame, decision, nil
}

// Run loops until the source ends, the context is cancelled or the
// payload runs out.  Those are all a normal finish.
func (s *Session) Run(ctx context.Context) error {
	s.defaults()

	var start = time.Now()
	defer func() {
		s.report.Elapsed = time.Since(start)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		var raw, err = s.Source.Next(ctx)

		switch {
		case errors.Is(err, ErrNoFrame):
			s.pause(ctx)
			continue
		case errors.Is(err, io.EOF):
			s.Logger.Info("End of frames")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return err
		}

		var done, handleErr = s.handle(ctx, raw)
		if handleErr != nil {
			return handleErr
		}

		if done {
			return nil
		}
	}
}

func (s *Session) pause(ctx context.Context) {
	if s.PollInterval <= 0 {
		return
	}

	var t = time.NewTimer(s.PollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// handle deals with one frame.  done means stop without error.
func (s *Session) handle(ctx context.Context, raw RawFrame) (bool, error) {
	s.report.FramesRead++
	s.Metrics.FramesRead.Inc()

	var frame, decision, err = s.Process(raw)

	if s.Log != nil && frame != nil {
		var logErr = s.logFrame(raw, frame.Header)
		if logErr != nil {
			return true, logErr
		}
	}

	if err != nil {
		s.report.FramesSkipped++

		if errors.Is(err, ErrFiltered) {
			s.Logger.Debug("Ignoring frame", "reason", err)
		} else {
			s.Logger.Warn("Skipping frame", "err", err, "bytes", raw.Count)
			s.Logger.Debug("Frame contents\n" + hexDump(raw.Data[:min(raw.Count, len(raw.Data))]))
		}

		return false, nil
	}

	s.report.FramesDecoded++

	if !decision {
		return false, nil
	}

	s.report.Positive++

	if s.Transmitter == nil {
		return false, nil
	}

	var sendErr = s.Transmitter.Send(ctx)

	switch {
	case errors.Is(sendErr, io.EOF):
		s.Logger.Info("Payload exhausted")
		return true, nil
	case sendErr != nil:
		s.Logger.Warn("Send failed", "err", sendErr)
		return false, nil
	}

	s.report.PacketsSent++
	s.Metrics.PacketsSent.Inc()
	s.Logger.Info("Packet sent", "count", s.report.PacketsSent)

	return false, nil
}

// logFrame saves the frame as read, up to its declared buffer length.
func (s *Session) logFrame(raw RawFrame, h FrameHeader) error {
	var n = min(raw.Count, len(raw.Data))
	if h.BufLen != 0 && int(h.BufLen) < n {
		n = int(h.BufLen)
	}

	return s.Log.Write(raw.Data[:n], h.Timestamp)
}

// Report is only meaningful once Run has returned.
func (s *Session) Report() Report {
	return s.report
}
