package csi

/*------------------------------------------------------------------
 *
 * Name:	AliceMain
 *
 * Purpose:	Sending end of the covert channel.
 *
 * Description:	Read CSI reports from the device.  For each ping frame
 *		whose subcarrier magnitudes are flat enough on the
 *		monitored antenna pairs, send the next chunk of the
 *		payload file to the receiver.
 *
 *		Optionally save every frame read to a session log which
 *		csi-replay can read back later.
 *
 * Usage:	csi-alice [options] [logfile]
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func AliceMain(args []string, stdout io.Writer, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("csi-alice", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var configFile = fs.StringP("config-file", "c", "", "YAML configuration file.")
	var device = fs.StringP("device", "d", DefaultDevicePath, "CSI device.")
	var logFile = fs.StringP("log-file", "L", "", "Save frames to this session log file.")
	var logDir = fs.StringP("log-dir", "l", "", "Save frames to daily session logs in this directory.")
	var resolution = fs.IntP("bit-resolution", "B", DefaultResolution, "Bits per sample component.")
	var threshold = fs.Float64P("db-threshold", "t", DefaultDBThreshold, "Maximum dB range across subcarriers for a stream to count as stable.")
	var streams = fs.IntP("trigger-streams", "s", DefaultTriggerStreams, "Number of leading streams that must all be stable.  0 for all.")
	var payloadFilter = fs.IntP("payload-filter", "p", PingPayloadSize, "Only analyze frames with this payload length.  0 for all.")
	var peer = fs.StringP("peer", "P", DefaultPeer, "Receiver address.")
	var payloadFile = fs.StringP("payload-file", "f", "scripture_payload.txt", "File holding the covert message.")
	var packetSize = fs.IntP("packet-size", "n", DefaultPacketSize, "Bytes of payload per packet.")
	var runFor = fs.DurationP("run-for", "T", DefaultRunFor, "Stop after this long.  0 to run until interrupted.")
	var metricsListen = fs.StringP("metrics-listen", "m", "", "Serve Prometheus metrics on this address.")
	var logLevel = fs.StringP("log-level", "v", DefaultLogLevel, "debug, info, warn or error.")
	var showVersion = fs.Bool("version", false, "Print version and exit.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "csi-alice - send a covert message paced by CSI stability.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: csi-alice [options] [logfile]\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "A single logfile argument is the same as -L logfile.\n")
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
		printVersion(stdout, "csi-alice")
		return 0
	}

	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "Too many input arguments!\n")
		return 1
	}

	var cfg, cfgErr = LoadConfig(*configFile)
	if cfgErr != nil {
		fmt.Fprintf(stderr, "%s\n", cfgErr)
		return 1
	}

	// Flags given explicitly win over the file.
	var overrides = map[string]func(){
		"device":          func() { cfg.Device.Path = *device },
		"log-file":        func() { cfg.SessionLog.File = *logFile },
		"log-dir":         func() { cfg.SessionLog.Dir = *logDir },
		"bit-resolution":  func() { cfg.Decoder.BitResolution = *resolution },
		"db-threshold":    func() { cfg.Analysis.DBThreshold = *threshold },
		"trigger-streams": func() { cfg.Analysis.TriggerStreams = *streams },
		"payload-filter":  func() { cfg.Analysis.PayloadFilter = *payloadFilter },
		"peer":            func() { cfg.Transmit.Peer = *peer },
		"payload-file":    func() { cfg.Transmit.PayloadFile = *payloadFile },
		"packet-size":     func() { cfg.Transmit.PacketSize = *packetSize },
		"run-for":         func() { cfg.RunFor = *runFor },
		"metrics-listen":  func() { cfg.Metrics.Listen = *metricsListen },
		"log-level":       func() { cfg.Logging.Level = *logLevel },
	}

	for name, apply := range overrides {
		if fs.Changed(name) {
			apply()
		}
	}

	if fs.NArg() == 1 {
		cfg.SessionLog.File = fs.Arg(0)
	}

	var validateErr = cfg.Validate()
	if validateErr != nil {
		fmt.Fprintf(stderr, "%s\n", validateErr)
		return 1
	}

	var logger, loggerErr = NewLogger(stderr, cfg.Logging.Level, "alice")
	if loggerErr != nil {
		fmt.Fprintf(stderr, "%s\n", loggerErr)
		return 1
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunFor)

		defer cancel()
	}

	var src, srcErr = OpenLiveSource(cfg.Device.Path, cfg.Device.ReadSize)
	if srcErr != nil {
		logger.Error("Failed to open the device", "err", srcErr)
		return 1
	}
	defer src.Close()

	var tx, txErr = OpenUDPTransmitter(ctx, cfg.Transmit.Peer, cfg.Transmit.PayloadFile, cfg.Transmit.PacketSize)
	if txErr != nil {
		logger.Error("Failed to set up transmitter", "err", txErr)
		return 1
	}
	defer tx.Close()

	var session = NewSession(src, cfg, logger)
	session.Transmitter = tx

	if cfg.SessionLog.File != "" || cfg.SessionLog.Dir != "" {
		var daily = cfg.SessionLog.Dir != ""

		var path = cfg.SessionLog.File
		if daily {
			path = cfg.SessionLog.Dir
		}

		var w, wErr = NewRecordWriter(daily, path, cfg.SessionLog.DailyPattern, logger)
		if wErr != nil {
			logger.Error("Couldn't set up session log", "err", wErr)
			return 1
		}
		defer w.Close()

		session.Log = w
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			var err = ServeMetrics(ctx, cfg.Metrics.Listen, session.Metrics, logger)
			if err != nil {
				logger.Error("Metrics server", "err", err)
			}
		}()
	}

	logger.Info("Starting to parse!", "device", cfg.Device.Path, "peer", cfg.Transmit.Peer)

	var runErr = session.Run(ctx)

	var report = session.Report()

	fmt.Fprintf(stdout, "Frames read: %d, decoded: %d, skipped: %d, stable: %d\n",
		report.FramesRead, report.FramesDecoded, report.FramesSkipped, report.Positive)
	fmt.Fprintf(stdout, "Packets sent in %s is: %d\n", report.Elapsed.Round(time.Millisecond), report.PacketsSent)
	fmt.Fprintf(stdout, "Sending byte rate is: %.1f bytes/second\n", report.SendRate(cfg.Transmit.PacketSize))

	if runErr != nil {
		logger.Error("Stopped", "err", runErr)
		return 1
	}

	return 0
}
