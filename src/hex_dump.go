package csi

import (
	"fmt"
	"strings"
)

// hexDump renders p as offset, hex and printable columns, 16 per line.
// Used to show malformed frames at debug level.
func hexDump(p []byte) string {
	var sb strings.Builder

	var offset = 0

	for len(p) > 0 {
		var n = min(len(p), 16)

		fmt.Fprintf(&sb, "  %03x: ", offset)

		for i := range n {
			fmt.Fprintf(&sb, " %02x", p[i])
		}

		for range 16 - n {
			sb.WriteString("   ")
		}

		sb.WriteString("  ")

		for i := range n {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				sb.WriteByte(p[i])
			} else {
				sb.WriteByte('.')
			}
		}

		sb.WriteByte('\n')

		p = p[n:]
		offset += n
	}

	return sb.String()
}
