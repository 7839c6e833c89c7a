package csi

/*------------------------------------------------------------------
 *
 * Name:	ReplayMain
 *
 * Purpose:	Read a session log back and run the same analysis on it.
 *
 * Usage:	csi-replay [options] logfile
 *
 * Outputs:	Summary on stdout.  Optionally one CSV line per frame
 *		and the per-subcarrier magnitudes of the first few frames.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

var replayCSVHeader = []string{
	"frame", "timestamp", "tsf", "channel", "rate", "chan_bw", "num_tones", "nr", "nc",
	"rssi", "rssi_0", "rssi_1", "rssi_2", "csi_len", "payload_len", "buf_len",
	"db_ranges", "stable", "send", "error",
}

func ReplayMain(args []string, stdout io.Writer, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("csi-replay", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var resolution = fs.IntP("bit-resolution", "B", DefaultResolution, "Bits per sample component.")
	var threshold = fs.Float64P("db-threshold", "t", DefaultDBThreshold, "Maximum dB range across subcarriers for a stream to count as stable.")
	var streams = fs.IntP("trigger-streams", "s", DefaultTriggerStreams, "Number of leading streams that must all be stable.  0 for all.")
	var payloadFilter = fs.IntP("payload-filter", "p", 0, "Only analyze frames with this payload length.  0 for all.")
	var jobs = fs.IntP("jobs", "j", 0, "Frames to decode in parallel.  0 for one per CPU.")
	var csvFile = fs.String("csv", "", "Write per frame CSV here.  - for stdout.")
	var stems = fs.Int("stems", 0, "Print subcarrier magnitudes for this many frames.")
	var logLevel = fs.StringP("log-level", "v", DefaultLogLevel, "debug, info, warn or error.")
	var showVersion = fs.Bool("version", false, "Print version and exit.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "csi-replay - decode and analyze a CSI session log.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: csi-replay [options] logfile\n")
		fs.PrintDefaults()
	}

	var parseErr = fs.Parse(args)
	if parseErr != nil {
		return 1
	}

	if *help {
		fs.Usage()
		return 0
	}

	if *showVersion {
		printVersion(stdout, "csi-replay")
		return 0
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(stderr, "Provide file name to be processed\n")
		return 1
	}

	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "Too many arguments\n")
		return 1
	}

	var logger, loggerErr = NewLogger(stderr, *logLevel, "replay")
	if loggerErr != nil {
		fmt.Fprintf(stderr, "%s\n", loggerErr)
		return 1
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var src, srcErr = OpenReplaySource(fs.Arg(0))
	if srcErr != nil {
		logger.Error("Couldn't open file!", "err", srcErr)
		return 1
	}
	defer src.Close()

	var frames, readErr = ReadAll(ctx, src)
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		logger.Error("Reading session log", "err", readErr)
		return 1
	}

	if src.Truncated() > 0 {
		logger.Warn("Ignoring incomplete record at end of log", "bytes", src.Truncated())
	}

	var cfg = DefaultConfig()
	cfg.Decoder.BitResolution = *resolution
	cfg.Analysis.DBThreshold = *threshold
	cfg.Analysis.TriggerStreams = *streams
	cfg.Analysis.PayloadFilter = *payloadFilter

	var session = NewSession(src, cfg, logger)

	var results, processErr = session.ProcessAll(ctx, frames, *jobs)
	if processErr != nil {
		logger.Error("Stopped", "err", processErr)
		return 1
	}

	var decoded, skipped, positive int

	for i, r := range results {
		switch {
		case r.Err == nil:
			decoded++
		case errors.Is(r.Err, ErrFiltered):
			skipped++
		default:
			skipped++

			logger.Warn("Skipping frame", "frame", i, "err", r.Err)
		}

		if r.Decision {
			positive++
		}
	}

	fmt.Fprintf(stdout, "num packets: %d\n", len(frames))
	fmt.Fprintf(stdout, "decoded: %d, skipped: %d, send decisions: %d\n", decoded, skipped, positive)

	if *csvFile != "" {
		var csvErr = writeReplayCSV(*csvFile, stdout, results)
		if csvErr != nil {
			logger.Error("Writing CSV", "err", csvErr)
			return 1
		}
	}

	if *stems > 0 {
		writeStems(stdout, results, *stems)
	}

	return 0
}

func writeReplayCSV(path string, stdout io.Writer, results []Result) error {
	var w = stdout

	if path != "-" {
		var f, err = os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		w = f
	}

	var cw = csv.NewWriter(w)

	var headerErr = cw.Write(replayCSVHeader)
	if headerErr != nil {
		return headerErr
	}

	for i, r := range results {
		var row = replayCSVRow(i, r)

		var rowErr = cw.Write(row)
		if rowErr != nil {
			return rowErr
		}
	}

	cw.Flush()

	return cw.Error()
}

func replayCSVRow(i int, r Result) []string {
	var row = make([]string, len(replayCSVHeader))
	row[0] = strconv.Itoa(i)
	row[1] = r.Raw.Timestamp

	if r.Frame != nil {
		var h = r.Frame.Header
		var nums = []uint64{
			h.TSF, uint64(h.Channel), uint64(h.Rate), uint64(h.ChanBW), uint64(h.NumTones),
			uint64(h.NR), uint64(h.NC), uint64(h.RSSI), uint64(h.RSSI0), uint64(h.RSSI1),
			uint64(h.RSSI2), uint64(h.CSILen), uint64(h.PayloadLen), uint64(h.BufLen),
		}

		for j, n := range nums {
			row[2+j] = strconv.FormatUint(n, 10)
		}

		var ranges []string
		for _, stream := range r.Frame.Samples {
			var rng, ok = DecibelRange(Decibels(stream))
			if ok {
				ranges = append(ranges, strconv.FormatFloat(rng, 'f', 2, 64))
			} else {
				ranges = append(ranges, "")
			}
		}

		row[16] = strings.Join(ranges, ";")

		var flags []string
		for _, s := range r.Frame.Stable {
			flags = append(flags, strconv.FormatBool(s))
		}

		row[17] = strings.Join(flags, ";")
	}

	row[18] = strconv.FormatBool(r.Decision)

	if r.Err != nil {
		row[19] = r.Err.Error()
	}

	return row
}

// writeStems is a text version of the stem plots: frequency offset and
// magnitude for each subcarrier of each stream.
func writeStems(w io.Writer, results []Result, limit int) {
	var shown = 0

	for i, r := range results {
		if shown >= limit {
			return
		}

		if r.Frame == nil || r.Frame.Samples == nil {
			continue
		}

		shown++

		fmt.Fprintf(w, "frame %d  %s\n", i, r.Raw.Timestamp)

		for s, stream := range r.Frame.Samples {
			var freqs = SubcarrierFrequencies(len(stream))
			var db = Decibels(stream)

			fmt.Fprintf(w, "  stream %d\n", s)

			for k := range stream {
				if db[k] == zeroMagnitudeDB {
					fmt.Fprintf(w, "    %8.4f MHz  %7s dB\n", freqs[k], "-inf")
				} else {
					fmt.Fprintf(w, "    %8.4f MHz  %7.2f dB\n", freqs[k], db[k])
				}
			}
		}
	}
}
