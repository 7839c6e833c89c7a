package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Receiving end of the covert channel.
 *
 * Description:	Whatever arrives on the UDP port is appended to the
 *		output file.  Meanwhile the receiving host pings the
 *		sender so that the sender has frames to measure CSI on;
 *		see StartPinger.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const DefaultListen = ":5005"

// ReceiveStats is what the receiver reports at exit.
type ReceiveStats struct {
	Packets int
	Bytes   int
	Elapsed time.Duration // First to last packet.
}

// BytesPerSecond over the elapsed time.
func (s ReceiveStats) BytesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}

	return float64(s.Bytes) / s.Elapsed.Seconds()
}

func formatElapsed(d time.Duration) string {
	var secs = int(d.Seconds()) % 86400

	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

func (s ReceiveStats) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Session info:\tPackets Captured: %d\n", s.Packets)

	if s.Packets == 0 {
		sb.WriteString("\t\tElapsed time: 00:00:00  \t[ No Packets Received ]\n")
		sb.WriteString("\t\tRxRate: 0 Bytes/second  \t[ No Packets Received ]\n")
		sb.WriteString("\t\t        0 KBits/second  \t[ No Packets Received ]")

		return sb.String()
	}

	var rate = s.BytesPerSecond()

	fmt.Fprintf(&sb, "\t\tElapsed time: %s\n", formatElapsed(s.Elapsed))
	fmt.Fprintf(&sb, "\t\tRxRate: %.1f Bytes/Second\n", rate)
	fmt.Fprintf(&sb, "\t\t        %.3f KBits/Second", rate*8/1000)

	return sb.String()
}

// Receiver collects covert datagrams.
type Receiver struct {
	conn   net.PacketConn
	out    io.Writer
	logger *log.Logger
	stats  ReceiveStats
	first  time.Time
}

func ListenReceiver(ctx context.Context, addr string, out io.Writer, logger *log.Logger) (*Receiver, error) {
	var lc net.ListenConfig

	var conn, err = lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", ErrDeviceUnavailable, addr, err)
	}

	return &Receiver{conn: conn, out: out, logger: logger, stats: ReceiveStats{}, first: time.Time{}}, nil
}

// Addr is where we are listening, handy when the port was 0.
func (r *Receiver) Addr() net.Addr {
	return r.conn.LocalAddr()
}

// Run receives until ctx is done.  The connection is closed on return.
func (r *Receiver) Run(ctx context.Context) error {
	var stop = context.AfterFunc(ctx, func() {
		r.conn.Close() //nolint:gosec
	})
	defer stop()
	defer r.conn.Close()

	var buf = make([]byte, DefaultPacketSize)

	for {
		var n, from, err = r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("receive: %w", err)
		}

		var now = time.Now()
		if r.stats.Packets == 0 {
			r.first = now
		}

		r.stats.Packets++
		r.stats.Bytes += n
		r.stats.Elapsed = now.Sub(r.first)

		r.logger.Debug("Received", "from", from, "bytes", n, "text", string(buf[:n]))

		var _, writeErr = r.out.Write(buf[:n])
		if writeErr != nil {
			return fmt.Errorf("writing received data: %w", writeErr)
		}
	}
}

// Stats is only meaningful once Run has returned.
func (r *Receiver) Stats() ReceiveStats {
	return r.stats
}
