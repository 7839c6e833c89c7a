package csi

/*------------------------------------------------------------------
 *
 * Name:	GenMain
 *
 * Purpose:	Generate a synthetic session log.
 *
 * Description:	Frames are built the same way the driver lays them out,
 *		so csi-replay can be tried without the hardware.  A
 *		"stable" frame has every subcarrier within a few dB of
 *		the others; an unstable one has a deep fade somewhere.
 *
 * Examples:	csi-gen -o z.csilog
 *		csi-replay --csv - z.csilog
 *
 *		csi-gen -N 500 --stable 0.3 --nr 2 --nc 2 -o z4.csilog
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// SyntheticOptions describes the frames GenerateFrame makes.
type SyntheticOptions struct {
	NR, NC     int
	NumTones   int
	Resolution int
	PayloadLen int
	Channel    uint16
}

func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		NR:         2,
		NC:         1,
		NumTones:   56,
		Resolution: DefaultResolution,
		PayloadLen: PingPayloadSize,
		Channel:    2437,
	}
}

// syntheticStream makes one stream.  Amplitudes are kept well inside
// the component range.
func syntheticStream(rng *rand.Rand, numTones int, resolution int, stable bool) []complex128 {
	var full = math.Ldexp(1, resolution-1) - 1
	var base = full * 0.6

	var stream = make([]complex128, numTones)

	for k := range stream {
		// +-2 dB ripple
		var amp = base * math.Pow(10, (rng.Float64()*4-2)/20)
		var phase = rng.Float64() * 2 * math.Pi

		stream[k] = complex(math.Round(amp*math.Cos(phase)), math.Round(amp*math.Sin(phase)))
		if stream[k] == 0 {
			stream[k] = 1
		}
	}

	if !stable && numTones > 0 {
		// Fade of roughly 40 dB on one tone.
		var k = rng.IntN(numTones)
		stream[k] = complex(math.Max(1, math.Round(base/100)), 0)
	}

	return stream
}

// GenerateFrame returns a complete device buffer plus the samples in it.
func GenerateFrame(rng *rand.Rand, opts SyntheticOptions, tsf uint64, stable []bool) ([]byte, SampleMatrix, error) {
	var n = opts.NR * opts.NC

	var m = make(SampleMatrix, n)
	for i := range m {
		var isStable = i < len(stable) && stable[i]
		m[i] = syntheticStream(rng, opts.NumTones, opts.Resolution, isStable)
	}

	var packed, packErr = PackSamples(m, opts.NR, opts.NC, opts.Resolution)
	if packErr != nil {
		return nil, nil, packErr
	}

	var h = FrameHeader{ //nolint:exhaustruct
		TSF:      tsf,
		Channel:  opts.Channel,
		Rate:     0x80,
		ChanBW:   0,
		NumTones: uint8(opts.NumTones),
		NR:       uint8(opts.NR),
		NC:       uint8(opts.NC),
		RSSI:     uint8(30 + rng.IntN(20)),
		RSSI0:    uint8(30 + rng.IntN(20)),
		RSSI1:    uint8(30 + rng.IntN(20)),
		RSSI2:    0x80,
		Noise:    0,
	}

	var payload = make([]byte, opts.PayloadLen)
	for i := range payload {
		payload[i] = byte(i)
	}

	var buf, buildErr = BuildFrame(h, packed, payload)
	if buildErr != nil {
		return nil, nil, buildErr
	}

	return buf, m, nil
}

// WriteSyntheticLog writes count frames to w.  Each stream of a frame is
// stable with probability stableFraction.
func WriteSyntheticLog(w io.Writer, rng *rand.Rand, opts SyntheticOptions, count int, stableFraction float64, start time.Time) error {
	for i := range count {
		var stable = make([]bool, opts.NR*opts.NC)
		for s := range stable {
			stable[s] = rng.Float64() < stableFraction
		}

		var when = start.Add(time.Duration(i) * 200 * time.Millisecond)

		var buf, _, err = GenerateFrame(rng, opts, uint64(when.UnixMicro()), stable)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}

		var writeErr = WriteRecord(w, buf, CaptureTimestamp(when))
		if writeErr != nil {
			return writeErr
		}
	}

	return nil
}

func GenMain(args []string, stdout io.Writer, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("csi-gen", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var defaults = DefaultSyntheticOptions()

	var output = fs.StringP("output-file", "o", "", "Session log to write.")
	var count = fs.IntP("frame-count", "N", 100, "Number of frames.")
	var nr = fs.Int("nr", defaults.NR, "Receive antennas.")
	var nc = fs.Int("nc", defaults.NC, "Transmit antennas.")
	var tones = fs.Int("tones", defaults.NumTones, "Subcarriers.")
	var resolution = fs.IntP("bit-resolution", "B", defaults.Resolution, "Bits per sample component.")
	var payloadLen = fs.Int("payload-len", defaults.PayloadLen, "Payload length of each frame.")
	var stableFraction = fs.Float64("stable", 0.7, "Probability that a stream is stable.")
	var seed = fs.Uint64("seed", 1, "Random seed.")
	var showVersion = fs.Bool("version", false, "Print version and exit.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "csi-gen - generate a synthetic CSI session log.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: csi-gen [options] -o file\n")
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
		printVersion(stdout, "csi-gen")
		return 0
	}

	if *output == "" {
		fmt.Fprintf(stderr, "An output file is required.\n")
		fs.Usage()

		return 1
	}

	var opts = SyntheticOptions{
		NR:         *nr,
		NC:         *nc,
		NumTones:   *tones,
		Resolution: *resolution,
		PayloadLen: *payloadLen,
		Channel:    defaults.Channel,
	}

	if opts.NR < 0 || opts.NC < 0 || opts.NR > math.MaxUint8 || opts.NC > math.MaxUint8 || opts.NumTones < 0 || opts.NumTones > math.MaxUint8 {
		fmt.Fprintf(stderr, "Antenna and tone counts must be 0 to 255.\n")
		return 1
	}

	var f, createErr = os.Create(*output)
	if createErr != nil {
		fmt.Fprintf(stderr, "Can't create %s: %s\n", *output, createErr)
		return 1
	}
	defer f.Close()

	var rng = rand.New(rand.NewPCG(*seed, *seed)) //nolint:gosec

	var genErr = WriteSyntheticLog(f, rng, opts, *count, *stableFraction, time.Now())
	if genErr != nil {
		fmt.Fprintf(stderr, "%s\n", genErr)
		return 1
	}

	fmt.Fprintf(stdout, "Wrote %d frames to %s\n", *count, *output)

	return 0
}
