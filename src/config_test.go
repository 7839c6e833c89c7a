package csi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig_defaults(t *testing.T) {
	var cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	assert.Equal(t, DefaultDevicePath, cfg.Device.Path)
	assert.Equal(t, 10, cfg.Decoder.BitResolution)
	assert.InDelta(t, 20.0, cfg.Analysis.DBThreshold, 0)
	assert.Equal(t, 2, cfg.Analysis.TriggerStreams)
	assert.Equal(t, 766, cfg.Analysis.PayloadFilter)
	assert.NoError(t, cfg.Validate())
}

func Test_LoadConfig_file(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "alice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  path: /tmp/fake_csi
decoder:
  bit_resolution: 8
analysis:
  db_threshold: 12.5
  trigger_streams: 0
transmit:
  peer: 192.0.2.1:9999
session_log:
  dir: /var/log/csi
run_for: 2m
`), 0o644))

	var cfg, err = LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fake_csi", cfg.Device.Path)
	assert.Equal(t, 8, cfg.Decoder.BitResolution)
	assert.InDelta(t, 12.5, cfg.Analysis.DBThreshold, 0)
	assert.Equal(t, 0, cfg.Analysis.TriggerStreams)
	assert.Equal(t, "192.0.2.1:9999", cfg.Transmit.Peer)
	assert.Equal(t, "/var/log/csi", cfg.SessionLog.Dir)
	assert.Equal(t, 2*time.Minute, cfg.RunFor)

	// Not mentioned, so still the default.
	assert.Equal(t, PingPayloadSize, cfg.Analysis.PayloadFilter)
	assert.Equal(t, DefaultPacketSize, cfg.Transmit.PacketSize)
}

func Test_LoadConfig_errors(t *testing.T) {
	var dir = t.TempDir()

	var _, missingErr = LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, missingErr)

	var bad = filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("decoder: [1, 2"), 0o644))

	var _, parseErr = LoadConfig(bad)
	require.Error(t, parseErr)

	var invalid = filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("decoder:\n  bit_resolution: 40\n"), 0o644))

	var _, validateErr = LoadConfig(invalid)
	require.ErrorContains(t, validateErr, "bit_resolution")
}

func Test_Config_Validate(t *testing.T) {
	var cfg = DefaultConfig()
	cfg.Decoder.BitResolution = 0
	cfg.Analysis.DBThreshold = -1
	cfg.Analysis.TriggerStreams = -1
	cfg.Device.ReadSize = 4
	cfg.Transmit.PacketSize = 0
	cfg.SessionLog.File = "a"
	cfg.SessionLog.Dir = "b"

	var err = cfg.Validate()
	require.Error(t, err)

	for _, want := range []string{"bit_resolution", "db_threshold", "trigger_streams", "read_size", "packet_size", "mutually exclusive"} {
		assert.ErrorContains(t, err, want)
	}
}
