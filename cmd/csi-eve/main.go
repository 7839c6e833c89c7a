// Recover the covert payload from a packet capture.
package main

import (
	"os"

	csi "github.com/doismellburning/csisignal/src"
)

func main() {
	os.Exit(csi.EveMain(os.Args[1:], os.Stdout, os.Stderr))
}
