package csi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

const (
	DefaultPeer       = "10.10.0.3:5005"
	DefaultPacketSize = 1024
)

// Transmitter acts on a positive decision.  It returns io.EOF once it
// has nothing left to send.
type Transmitter interface {
	Send(ctx context.Context) error
}

// UDPTransmitter sends the covert payload one chunk per decision.
type UDPTransmitter struct {
	conn    net.Conn
	payload io.Reader
	closer  io.Closer
	buf     []byte
	sent    int // bytes
}

var _ Transmitter = (*UDPTransmitter)(nil)

func NewUDPTransmitter(ctx context.Context, peer string, payload io.Reader, packetSize int) (*UDPTransmitter, error) {
	if packetSize <= 0 {
		return nil, fmt.Errorf("packet size %d must be positive", packetSize)
	}

	var d net.Dialer

	var conn, err = d.DialContext(ctx, "udp", peer)
	if err != nil {
		return nil, fmt.Errorf("%w: udp %s: %w", ErrDeviceUnavailable, peer, err)
	}

	return &UDPTransmitter{
		conn:    conn,
		payload: payload,
		closer:  nil,
		buf:     make([]byte, packetSize),
		sent:    0,
	}, nil
}

// OpenUDPTransmitter is NewUDPTransmitter reading its payload from a file.
func OpenUDPTransmitter(ctx context.Context, peer string, payloadPath string, packetSize int) (*UDPTransmitter, error) {
	var f, err = os.Open(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("%w: payload %w", ErrDeviceUnavailable, err)
	}

	var t, tErr = NewUDPTransmitter(ctx, peer, f, packetSize)
	if tErr != nil {
		f.Close() //nolint:gosec

		return nil, tErr
	}

	t.closer = f

	return t, nil
}

func (t *UDPTransmitter) Send(ctx context.Context) error {
	var n, err = io.ReadFull(t.payload, t.buf)
	switch {
	case errors.Is(err, io.EOF):
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Last, short, chunk.
	case err != nil:
		return fmt.Errorf("reading payload: %w", err)
	}

	var deadline, ok = ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}

	t.conn.SetWriteDeadline(deadline) //nolint:errcheck

	var _, writeErr = t.conn.Write(t.buf[:n])
	if writeErr != nil {
		return fmt.Errorf("sending to %s: %w", t.conn.RemoteAddr(), writeErr)
	}

	t.sent += n

	return nil
}

// BytesSent so far.
func (t *UDPTransmitter) BytesSent() int {
	return t.sent
}

func (t *UDPTransmitter) Close() error {
	var err = t.conn.Close()

	if t.closer != nil {
		err = errors.Join(err, t.closer.Close())
	}

	return err
}
