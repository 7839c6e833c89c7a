package csi

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// TimestampLen is the fixed width of the capture time text in a session
// log record, e.g. "2020-02-18 14:03:27.123456".
const TimestampLen = 26

const captureTimeFormat = "%Y-%m-%d %H:%M:%S"

// CaptureTimestamp renders t in the session log's timestamp format.
// Always TimestampLen characters.
func CaptureTimestamp(t time.Time) string {
	var s, _ = strftime.Format(captureTimeFormat, t)

	return fmt.Sprintf("%s.%06d", s, t.Nanosecond()/1000)
}

// fixTimestamp pads or cuts a timestamp to exactly TimestampLen bytes.
func fixTimestamp(ts string) []byte {
	var b = []byte(ts)
	if len(b) >= TimestampLen {
		return b[:TimestampLen]
	}

	return append(b, []byte(strings.Repeat(" ", TimestampLen-len(b)))...)
}
