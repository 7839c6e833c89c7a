package csi

import (
	"cmp"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
)

// Set at build time via `-ldflags "-X 'github.com/doismellburning/csisignal/src.CSISIGNAL_VERSION=X'"`
var CSISIGNAL_VERSION string

// printVersion writes one line naming the tool, its version and the VCS
// revision it was built from.
func printVersion(w io.Writer, tool string) {
	var settings = map[string]string{}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, bs := range bi.Settings {
			settings[bs.Key] = bs.Value
		}
	}

	var revision = cmp.Or(settings["vcs.revision"], "UNKNOWN")

	switch dirty, err := strconv.ParseBool(settings["vcs.modified"]); {
	case err != nil:
		revision += "-UNKNOWNDIRTY"
	case dirty:
		revision += "-DIRTY"
	}

	fmt.Fprintf(w, "%s - Version %s (revision %s, built at %s)\n",
		tool, cmp.Or(CSISIGNAL_VERSION, "!UNKNOWN!"), revision, cmp.Or(settings["vcs.time"], "UNKNOWN"))
}
