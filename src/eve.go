package csi

/*------------------------------------------------------------------
 *
 * Name:	EveMain
 *
 * Purpose:	Recover what a passive listener would see of the
 *		covert message.
 *
 * Usage:	csi-eve [options] capture-file output-file
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

func EveMain(args []string, stdout io.Writer, stderr io.Writer) int {
	var fs = pflag.NewFlagSet("csi-eve", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var port = fs.IntP("port", "p", DefaultCovertPort, "UDP destination port of the covert channel.")
	var showVersion = fs.Bool("version", false, "Print version and exit.")
	var help = fs.BoolP("help", "h", false, "Display help text.")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "csi-eve - extract the covert payload from a pcap or pcapng capture.\n")
		fmt.Fprintf(stderr, "\n")
		fmt.Fprintf(stderr, "Usage: csi-eve [options] capture-file output-file\n")
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
		printVersion(stdout, "csi-eve")
		return 0
	}

	if fs.NArg() != 2 {
		fmt.Fprintf(stderr, "Need a capture file and an output file.\n")
		fs.Usage()

		return 1
	}

	var in, inErr = os.Open(fs.Arg(0))
	if inErr != nil {
		fmt.Fprintf(stderr, "Can't open %s: %s\n", fs.Arg(0), inErr)
		return 1
	}
	defer in.Close()

	var out, outErr = os.Create(fs.Arg(1))
	if outErr != nil {
		fmt.Fprintf(stderr, "Can't create %s: %s\n", fs.Arg(1), outErr)
		return 1
	}
	defer out.Close()

	var stats, sniffErr = Sniff(in, *port, out)

	fmt.Fprintf(stdout, "Received packets: %d\n", stats.Packets)

	if stats.Duplicates > 0 {
		fmt.Fprintf(stdout, "Retries dropped: %d\n", stats.Duplicates)
	}

	if sniffErr != nil {
		fmt.Fprintf(stderr, "%s\n", sniffErr)
		return 1
	}

	return 0
}
