package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Eavesdropper's view of the covert channel.
 *
 * Description:	Read a capture taken near the two radios, pull out the
 *		UDP payloads sent to the covert port and see how much of
 *		the message a third party recovers.  802.11 retries show
 *		up as consecutive frames with the same sequence number;
 *		only the first is kept.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const DefaultCovertPort = 5005

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// SniffStats counts what Sniff found.
type SniffStats struct {
	Packets    int // Kept.
	Duplicates int // 802.11 retries dropped.
	Bytes      int
}

type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

func openCapture(r io.Reader) (packetReader, error) {
	var br = bufio.NewReader(r)

	var magic, _ = br.Peek(4)
	if bytes.Equal(magic, pcapngMagic) {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}

	return pcapgo.NewReader(br)
}

// retryFilter drops a frame whose 802.11 sequence number equals the last
// kept one.  Frames without an 802.11 layer are always kept.
type retryFilter struct {
	prev  uint16
	valid bool
}

func (f *retryFilter) keep(seq uint16, hasSeq bool) bool {
	if !hasSeq {
		return true
	}

	if f.valid && seq == f.prev {
		return false
	}

	f.prev = seq
	f.valid = true

	return true
}

/*-------------------------------------------------------------------
 *
 * Name:	Sniff
 *
 * Purpose:	Extract the covert payload from a capture file.
 *
 * Inputs:	r	- pcap or pcapng data.
 *		port	- UDP destination port of the covert channel.
 *		out	- Where payloads go, in capture order.
 *
 *--------------------------------------------------------------------*/

func Sniff(r io.Reader, port int, out io.Writer) (SniffStats, error) {
	var stats SniffStats

	var capture, openErr = openCapture(r)
	if openErr != nil {
		return stats, fmt.Errorf("reading capture: %w", openErr)
	}

	var src = gopacket.NewPacketSource(capture, capture.LinkType())
	var filter retryFilter

	for {
		var packet, err = src.NextPacket()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}

		if err != nil {
			return stats, fmt.Errorf("reading capture: %w", err)
		}

		var udpLayer = packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}

		var udp, _ = udpLayer.(*layers.UDP)
		if udp == nil || int(udp.DstPort) != port {
			continue
		}

		var seq, hasSeq = uint16(0), false
		if dot11Layer := packet.Layer(layers.LayerTypeDot11); dot11Layer != nil {
			if dot11, ok := dot11Layer.(*layers.Dot11); ok {
				seq, hasSeq = dot11.SequenceNumber, true
			}
		}

		if !filter.keep(seq, hasSeq) {
			stats.Duplicates++
			continue
		}

		var _, writeErr = out.Write(udp.Payload)
		if writeErr != nil {
			return stats, writeErr
		}

		stats.Packets++
		stats.Bytes += len(udp.Payload)
	}
}
