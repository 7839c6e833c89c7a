package csi

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the covert channel receiver using DNS-SD
 *
 * Description:
 *
 *     Saves typing the receiver's address into the sender every time
 *     the lab network hands out a new lease.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package for
 *     mDNS/DNS-SD service announcement without requiring any system
 *     daemon or C library dependencies.
 */

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const DNS_SD_SERVICE = "_csi-covert._udp"

// dnsSDDefaultServiceName is "CSI receiver on <hostname>".
func dnsSDDefaultServiceName() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "CSI receiver"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "CSI receiver on " + hostname
}

// AnnounceReceiver publishes the receiver until ctx is done.  Failures
// are logged, not fatal: the sender can always be given an address.
func AnnounceReceiver(ctx context.Context, name string, port int, logger *log.Logger) {
	if name == "" {
		name = dnsSDDefaultServiceName()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		logger.Error("DNS-SD: Failed to create service", "err", svErr)
		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		logger.Error("DNS-SD: Failed to create responder", "err", rpErr)
		return
	}

	var _, addErr = rp.Add(sv)
	if addErr != nil {
		logger.Error("DNS-SD: Failed to add service", "err", addErr)
		return
	}

	logger.Info("DNS-SD: Announcing receiver", "port", port, "name", name)

	go func() {
		var respondErr = rp.Respond(ctx)
		if respondErr != nil && ctx.Err() == nil {
			logger.Error("DNS-SD: Responder error", "err", respondErr)
		}
	}()
}
