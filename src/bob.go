package csi

/*------------------------------------------------------------------
 *
 * Name:	BobMain
 *
 * Purpose:	Receiving end of the covert channel.
 *
 * Usage:	csi-bob [options]
 *
 *		Runs until interrupted, then prints how much arrived.
 *
 *		With --ping-target, ping the sender in the background
 *		the whole time, so that it has frames to measure.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func BobMain(args []string, stdout io.Writer, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("csi-bob", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var listen = fs.StringP("listen", "a", DefaultListen, "UDP address to receive on.")
	var output = fs.StringP("output-file", "o", "receivedMessage.txt", "Append what arrives to this file.")
	var announce = fs.Bool("dns-sd", false, "Announce the receiver with DNS-SD.")
	var announceName = fs.String("dns-sd-name", "", "DNS-SD service name.  Default is based on the host name.")
	var pingTarget = fs.String("ping-target", "", "Address of the sender to ping.  Empty for no ping.")
	var pingSize = fs.Int("ping-size", DefaultPingSize, "ICMP data bytes per ping.")
	var pingInterval = fs.Duration("ping-interval", DefaultPingInterval, "Time between pings.")
	var pingCommand = fs.String("ping-command", DefaultPingCommand, "Ping program.")
	var logLevel = fs.StringP("log-level", "v", DefaultLogLevel, "debug, info, warn or error.")
	var showVersion = fs.Bool("version", false, "Print version and exit.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "csi-bob - receive the covert message.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: csi-bob [options]\n")
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
		printVersion(stdout, "csi-bob")
		return 0
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "Too many input arguments!\n")
		return 1
	}

	var logger, loggerErr = NewLogger(stderr, *logLevel, "bob")
	if loggerErr != nil {
		fmt.Fprintf(stderr, "%s\n", loggerErr)
		return 1
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var f, openErr = os.OpenFile(*output, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if openErr != nil {
		logger.Error("Can't open output file", "path", *output, "err", openErr)
		return 1
	}
	defer f.Close()

	if *pingTarget != "" {
		var opts = PingOptions{
			Command:  *pingCommand,
			Target:   *pingTarget,
			Size:     *pingSize,
			Interval: *pingInterval,
		}

		var pinger, pingErr = StartPinger(ctx, opts, logger)
		if pingErr != nil {
			logger.Error("Failed to start ping", "err", pingErr)
			return 1
		}

		defer func() {
			var err = pinger.Stop()
			if err != nil {
				logger.Warn("Ping", "err", err)
			}
		}()
	}

	var rx, rxErr = ListenReceiver(ctx, *listen, f, logger)
	if rxErr != nil {
		logger.Error("Failed to listen", "err", rxErr)
		return 1
	}

	if *announce {
		if udpAddr, ok := rx.Addr().(*net.UDPAddr); ok {
			AnnounceReceiver(ctx, *announceName, udpAddr.Port, logger)
		}
	}

	logger.Info("Waiting for packets", "addr", rx.Addr(), "output", *output)

	var runErr = rx.Run(ctx)

	fmt.Fprintln(stdout, rx.Stats().String())

	if runErr != nil {
		logger.Error("Stopped", "err", runErr)
		return 1
	}

	return 0
}
