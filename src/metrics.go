package csi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons for FramesSkipped.
const (
	SkipTruncated = "truncated_header"
	SkipUnderrun  = "buffer_underrun"
	SkipFiltered  = "payload_filter"
	SkipOther     = "other"
)

// Metrics holds the counters for one session.
type Metrics struct {
	Registry *prometheus.Registry

	FramesRead    prometheus.Counter
	FramesDecoded prometheus.Counter
	FramesSkipped *prometheus.CounterVec
	Decisions     *prometheus.CounterVec
	PacketsSent   prometheus.Counter
	DecodeSeconds prometheus.Histogram
}

// NewMetrics registers everything on a fresh registry so that several
// sessions (and tests) don't trip over each other.
func NewMetrics() *Metrics {
	var reg = prometheus.NewRegistry()
	var factory = promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FramesRead: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct
			Name: "csi_frames_read_total",
			Help: "Raw frames acquired from the device or log",
		}),
		FramesDecoded: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct
			Name: "csi_frames_decoded_total",
			Help: "Frames whose samples were decoded and analyzed",
		}),
		FramesSkipped: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct
			Name: "csi_frames_skipped_total",
			Help: "Frames not analyzed, by reason",
		}, []string{"reason"}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{ //nolint:exhaustruct
			Name: "csi_decisions_total",
			Help: "Transmit decisions, by result",
		}, []string{"result"}),
		PacketsSent: factory.NewCounter(prometheus.CounterOpts{ //nolint:exhaustruct
			Name: "csi_packets_sent_total",
			Help: "Covert packets sent",
		}),
		DecodeSeconds: factory.NewHistogram(prometheus.HistogramOpts{ //nolint:exhaustruct
			Name:    "csi_decode_seconds",
			Help:    "Time to decode and analyze one frame",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// ServeMetrics exposes the registry on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, m *Metrics, logger *log.Logger) error {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})) //nolint:exhaustruct

	var srv = &http.Server{ //nolint:exhaustruct
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		var shutdownCtx, cancel = context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("Serving metrics", "addr", addr)

	var err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
