// Receiving end of the covert channel.
package main

import (
	"os"

	csi "github.com/doismellburning/csisignal/src"
)

func main() {
	os.Exit(csi.BobMain(os.Args[1:], os.Stdout, os.Stderr))
}
