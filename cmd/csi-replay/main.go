// Decode and analyze a saved CSI session log.
package main

import (
	"os"

	csi "github.com/doismellburning/csisignal/src"
)

func main() {
	os.Exit(csi.ReplayMain(os.Args[1:], os.Stdout, os.Stderr))
}
