package csi

/*------------------------------------------------------------------
 *
 * Purpose:	Save raw CSI frames to a session log for later replay.
 *
 * Description: Each record is
 *
 *		  2 bytes	length of raw frame, little endian.
 *		 26 bytes	capture time as text.
 *		  n bytes	raw frame exactly as read from the device.
 *
 *		Nothing from the header is duplicated in the record; a
 *		replay parses the raw frame again.
 *
 *		There are two alternatives for where records go.
 *
 *		-L logfile		Specify full file path.
 *
 *		-l logdir		Daily names will be created here.
 *
 *		Use one or the other but not both.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

const recordPrefixLen = 2 + TimestampLen

const DefaultDailyPattern = "%Y-%m-%d.csilog"

// Record is one frame in a session log.
type Record struct {
	Timestamp string
	Data      []byte
}

// RecordWriter appends records to a single file or to daily files in a
// directory.
type RecordWriter struct {
	dailyNames bool
	path       string // File, or directory when dailyNames.
	pattern    string
	fp         *os.File
	openName   string
	now        func() time.Time
	logger     *log.Logger
}

/*------------------------------------------------------------------
 *
 * Function:	NewRecordWriter
 *
 * Inputs:	dailyNames	- True if daily names should be generated.
 *				  In this case path is a directory.
 *				  When false, path would be the file name.
 *
 *		path		- Log file name or just directory.
 *				  Use "." for current directory.
 *
 *		pattern		- strftime pattern for daily names.
 *
 * Description:	A missing directory is created, but only one level,
 *		not like "mkdir -p".  If that fails, or the path isn't a
 *		directory, fall back to the current directory.
 *		Files are opened lazily on first write and kept open.
 *
 *------------------------------------------------------------------*/

func NewRecordWriter(dailyNames bool, path string, pattern string, logger *log.Logger) (*RecordWriter, error) {
	if path == "" {
		return nil, errors.New("no session log path")
	}

	if pattern == "" {
		pattern = DefaultDailyPattern
	}

	var _, patternErr = strftime.New(pattern)
	if patternErr != nil {
		return nil, fmt.Errorf("bad daily log pattern %q: %w", pattern, patternErr)
	}

	var w = &RecordWriter{ //nolint:exhaustruct
		dailyNames: dailyNames,
		path:       path,
		pattern:    pattern,
		now:        time.Now,
		logger:     logger,
	}

	if !dailyNames {
		logger.Info("Session log file", "path", path)
		return w, nil
	}

	var stat, statErr = os.Stat(path)
	if statErr == nil {
		if !stat.IsDir() {
			logger.Error("Session log location is not a directory, using \".\" instead", "path", path)
			w.path = "."
		}

		return w, nil
	}

	var mkdirErr = os.Mkdir(path, 0o755)
	if mkdirErr != nil {
		logger.Error("Failed to create session log location, using \".\" instead", "path", path, "err", mkdirErr)
		w.path = "."

		return w, nil
	}

	logger.Info("Session log location has been created", "path", path)

	return w, nil
}

// currentName is the file the next record should go to.  Daily names
// are UTC.
func (w *RecordWriter) currentName() string {
	if !w.dailyNames {
		return w.path
	}

	var fname, _ = strftime.Format(w.pattern, w.now().UTC())

	return filepath.Join(w.path, fname)
}

func (w *RecordWriter) ensureOpen() error {
	var name = w.currentName()

	// Close current file if name has changed
	if w.fp != nil && name != w.openName {
		var closeErr = w.Close()
		if closeErr != nil {
			w.logger.Warn("Closing previous session log", "path", w.openName, "err", closeErr)
		}
	}

	if w.fp != nil {
		return nil
	}

	w.logger.Info("Opening session log", "path", name)

	var f, openErr = os.OpenFile(name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if openErr != nil {
		return fmt.Errorf("%w: session log %s: %w", ErrDeviceUnavailable, name, openErr)
	}

	w.fp = f
	w.openName = name

	return nil
}

// WriteRecord writes one record to out in a single Write.
func WriteRecord(out io.Writer, data []byte, timestamp string) error {
	if len(data) > math.MaxUint16 {
		return fmt.Errorf("frame of %d bytes is too long for a session log record", len(data))
	}

	var rec = make([]byte, 0, recordPrefixLen+len(data))
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(data)))
	rec = append(rec, fixTimestamp(timestamp)...)
	rec = append(rec, data...)

	var _, writeErr = out.Write(rec)

	return writeErr
}

// Write appends one record.
func (w *RecordWriter) Write(data []byte, timestamp string) error {
	var openErr = w.ensureOpen()
	if openErr != nil {
		return openErr
	}

	return WriteRecord(w.fp, data, timestamp)
}

// Name of the currently open file, if any.
func (w *RecordWriter) Name() string {
	return w.openName
}

func (w *RecordWriter) Close() error {
	if w.fp == nil {
		return nil
	}

	var err = w.fp.Close()
	w.fp = nil
	w.openName = ""

	return err
}

// RecordReader reads records back.
type RecordReader struct {
	r         *bufio.Reader
	truncated int
}

func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: bufio.NewReader(r), truncated: 0}
}

// ReadRecord returns the next record.  io.EOF at the end of the log,
// including when the last record is cut short; see Truncated.
func (rr *RecordReader) ReadRecord() (Record, error) {
	var prefix [recordPrefixLen]byte

	var n, err = io.ReadFull(rr.r, prefix[:])
	if err != nil {
		rr.truncated += n
		return Record{}, eofOr(err)
	}

	var length = int(binary.LittleEndian.Uint16(prefix[:2]))
	var data = make([]byte, length)

	n, err = io.ReadFull(rr.r, data)
	if err != nil {
		rr.truncated += recordPrefixLen + n
		return Record{}, eofOr(err)
	}

	return Record{
		Timestamp: strings.TrimRight(string(prefix[2:]), " \x00"),
		Data:      data,
	}, nil
}

// Truncated is the number of bytes of an incomplete final record.
func (rr *RecordReader) Truncated() int {
	return rr.truncated
}

func eofOr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}

	return err
}
