package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Keep the sender busy with ping traffic.
 *
 * Description:	The sender only measures CSI on frames of one size,
 *		the echo requests made by
 *
 *			ping -s 698 -i 0.2 <sender>
 *
 *		698 bytes of ICMP data come out as a 766 byte payload
 *		on the air.  The receiver runs ping in the background
 *		for as long as it is listening.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultPingCommand  = "ping"
	DefaultPingSize     = 698
	DefaultPingInterval = 200 * time.Millisecond
)

type PingOptions struct {
	Command  string // "ping" unless testing.
	Target   string
	Size     int
	Interval time.Duration
}

func (o PingOptions) args() []string {
	return []string{
		"-s", strconv.Itoa(o.Size),
		"-i", strconv.FormatFloat(o.Interval.Seconds(), 'f', -1, 64),
		o.Target,
	}
}

// Pinger is a running ping process.
type Pinger struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan error
}

// StartPinger starts ping.  It is killed when ctx is done or Stop is
// called, whichever is first.
func StartPinger(ctx context.Context, opts PingOptions, logger *log.Logger) (*Pinger, error) {
	if opts.Target == "" {
		return nil, errors.New("no ping target")
	}

	if opts.Size < 0 {
		return nil, fmt.Errorf("ping size %d is negative", opts.Size)
	}

	if opts.Interval <= 0 {
		return nil, fmt.Errorf("ping interval %s must be positive", opts.Interval)
	}

	if opts.Command == "" {
		opts.Command = DefaultPingCommand
	}

	var pctx, cancel = context.WithCancel(ctx)

	var cmd = exec.CommandContext(pctx, opts.Command, opts.args()...) //nolint:gosec

	var startErr = cmd.Start()
	if startErr != nil {
		cancel()
		return nil, fmt.Errorf("starting %s: %w", opts.Command, startErr)
	}

	logger.Info("Pinging", "target", opts.Target, "size", opts.Size, "interval", opts.Interval, "pid", cmd.Process.Pid)

	var p = &Pinger{cmd: cmd, cancel: cancel, done: make(chan error, 1)}

	go func() {
		var err = cmd.Wait()
		if pctx.Err() == nil {
			logger.Warn("Ping stopped by itself", "err", err)
		}

		p.done <- err
	}()

	return p, nil
}

// Stop kills ping and waits for it.  Being killed is not an error.
// Call it once.
func (p *Pinger) Stop() error {
	p.cancel()

	var err = <-p.done

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		return nil
	}

	return err
}
