// Generate synthetic CSI session logs.
package main

import (
	"os"

	csi "github.com/doismellburning/csisignal/src"
)

func main() {
	os.Exit(csi.GenMain(os.Args[1:], os.Stdout, os.Stderr))
}
