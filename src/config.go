package csi

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PingPayloadSize is the payload length of the ping frames the receiving
// side generates (ping -s 698 plus headers).  Other frames are logged but
// not analyzed.
const PingPayloadSize = 766

const DefaultRunFor = 30 * time.Second

// Config is what csi-alice reads from its YAML file.  Command line
// flags override it.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Transmit   TransmitConfig   `yaml:"transmit"`
	SessionLog SessionLogConfig `yaml:"session_log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	RunFor     time.Duration    `yaml:"run_for"` // 0 runs until interrupted.
}

type DeviceConfig struct {
	Path         string        `yaml:"path"`
	ReadSize     int           `yaml:"read_size"`
	PollInterval time.Duration `yaml:"poll_interval"` // Wait after an empty read.
}

type DecoderConfig struct {
	BitResolution int `yaml:"bit_resolution"`
}

type AnalysisConfig struct {
	DBThreshold    float64 `yaml:"db_threshold"`
	TriggerStreams int     `yaml:"trigger_streams"` // 0 = all streams.
	PayloadFilter  int     `yaml:"payload_filter"`  // 0 = analyze every frame.
}

type TransmitConfig struct {
	Peer        string `yaml:"peer"`
	PayloadFile string `yaml:"payload_file"`
	PacketSize  int    `yaml:"packet_size"`
}

type SessionLogConfig struct {
	File         string `yaml:"file"`
	Dir          string `yaml:"dir"`
	DailyPattern string `yaml:"daily_pattern"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables.
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Device: DeviceConfig{
			Path:         DefaultDevicePath,
			ReadSize:     DefaultReadSize,
			PollInterval: time.Millisecond,
		},
		Decoder: DecoderConfig{
			BitResolution: DefaultResolution,
		},
		Analysis: AnalysisConfig{
			DBThreshold:    DefaultDBThreshold,
			TriggerStreams: DefaultTriggerStreams,
			PayloadFilter:  PingPayloadSize,
		},
		Transmit: TransmitConfig{
			Peer:        DefaultPeer,
			PayloadFile: "scripture_payload.txt",
			PacketSize:  DefaultPacketSize,
		},
		SessionLog: SessionLogConfig{
			File:         "",
			Dir:          "",
			DailyPattern: DefaultDailyPattern,
		},
		Metrics: MetricsConfig{Listen: ""},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		RunFor:  DefaultRunFor,
	}
}

// LoadConfig reads path over the defaults.  An empty path just gives the
// defaults.
func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	var data, readErr = os.ReadFile(path)
	if readErr != nil {
		return cfg, fmt.Errorf("reading config: %w", readErr)
	}

	var unmarshalErr = yaml.Unmarshal(data, &cfg)
	if unmarshalErr != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, unmarshalErr)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	if c.Decoder.BitResolution < 1 || c.Decoder.BitResolution > MaxResolution {
		errs = append(errs, fmt.Errorf("decoder.bit_resolution %d out of range 1-%d", c.Decoder.BitResolution, MaxResolution))
	}

	if c.Analysis.DBThreshold < 0 {
		errs = append(errs, fmt.Errorf("analysis.db_threshold %g is negative", c.Analysis.DBThreshold))
	}

	if c.Analysis.TriggerStreams < 0 {
		errs = append(errs, fmt.Errorf("analysis.trigger_streams %d is negative", c.Analysis.TriggerStreams))
	}

	if c.Device.ReadSize < HeaderLen {
		errs = append(errs, fmt.Errorf("device.read_size %d is smaller than a header", c.Device.ReadSize))
	}

	if c.Transmit.PacketSize <= 0 {
		errs = append(errs, fmt.Errorf("transmit.packet_size %d must be positive", c.Transmit.PacketSize))
	}

	if c.SessionLog.File != "" && c.SessionLog.Dir != "" {
		errs = append(errs, errors.New("session_log.file and session_log.dir are mutually exclusive"))
	}

	return errors.Join(errs...)
}
